// Package update checks GitHub for a newer deepsearch release. The
// check is purely informational; nothing is downloaded or installed.
package update

import (
	"context"
	"io"
	"net/http"

	"github.com/mcuadros/go-version"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/deepsearch-project/deepsearch/internal/httpx"
)

const releasesURL = "https://api.github.com/repos/deepsearch-project/deepsearch/releases/latest"

const maxReleaseBody = 1 << 20

// CheckLatest fetches the latest release tag and compares it with the
// running version. newer is true when latest is strictly ahead.
func CheckLatest(ctx context.Context, client httpx.Doer, current string) (latest string, newer bool, err error) {
	return checkLatest(ctx, client, releasesURL, current)
}

func checkLatest(ctx context.Context, client httpx.Doer, rawURL, current string) (string, bool, error) {
	req, err := httpx.NewRequest(ctx, http.MethodGet, rawURL, nil, "")
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return "", false, errors.Wrap(err, "fetch latest release")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, errors.Errorf("fetch latest release: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReleaseBody))
	if err != nil {
		return "", false, errors.Wrap(err, "read release body")
	}

	tag := gjson.GetBytes(body, "tag_name").String()
	if tag == "" {
		return "", false, errors.New("release has no tag_name")
	}

	newer := version.CompareSimple(version.Normalize(tag), version.Normalize(current)) > 0
	return tag, newer, nil
}
