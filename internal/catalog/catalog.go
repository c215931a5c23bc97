// Package catalog loads sherlock-format site databases into probe
// descriptors. Document order is preserved so that caller-side
// truncation ("top N sites") is deterministic.
package catalog

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/deepsearch-project/deepsearch/internal/probe"
)

const RemoteURL = "https://raw.githubusercontent.com/sherlock-project/sherlock/refs/heads/master/sherlock_project/resources/data.json"

const (
	updateAttempts = 3
	maxErrSnippet  = 2048
)

// Load reads a sherlock-style data.json from disk.
func Load(path string) ([]probe.Descriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read catalog")
	}
	return Parse(raw)
}

// Parse decodes the catalog in document order. The top-level "$schema"
// entry is skipped. Entries with an unusable shape (missing url,
// unknown errorType) are kept under their name and rejected at probe
// time instead of failing the whole load.
func Parse(raw []byte) ([]probe.Descriptor, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.New("catalog is not valid JSON")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, errors.New("catalog root is not a JSON object")
	}

	var descs []probe.Descriptor
	root.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if name == "$schema" {
			return true
		}
		descs = append(descs, descriptorFrom(name, value))
		return true
	})
	return descs, nil
}

func descriptorFrom(name string, value gjson.Result) probe.Descriptor {
	d := probe.Descriptor{
		Name:          name,
		URLTemplate:   value.Get("url").String(),
		ProbeTemplate: value.Get("urlProbe").String(),
		RegexCheck:    value.Get("regexCheck").String(),
		Rule: probe.DetectionRule{
			Kind: probe.RuleKind(value.Get("errorType").String()),
		},
	}

	if d.Rule.Kind == probe.RuleMessage {
		d.Rule.Markers = markersFrom(value.Get("errorMsg"))
	}
	return d
}

// markersFrom accepts the catalog's errorMsg in both of its shapes:
// a single string or an array of strings.
func markersFrom(v gjson.Result) []string {
	switch {
	case v.IsArray():
		var markers []string
		for _, item := range v.Array() {
			if s := item.String(); s != "" {
				markers = append(markers, s)
			}
		}
		return markers
	case v.Type == gjson.String && v.String() != "":
		return []string{v.String()}
	default:
		return nil
	}
}

// Top truncates to the first n descriptors in catalog order. n <= 0
// means no truncation; the core itself never limits catalog size.
func Top(descs []probe.Descriptor, n int) []probe.Descriptor {
	if n <= 0 || n >= len(descs) {
		return descs
	}
	return descs[:n]
}

// Filter selects descriptors by name, case-insensitively, preserving
// catalog order. Names that match nothing are returned separately so
// the caller can warn about them.
func Filter(descs []probe.Descriptor, names []string) (selected []probe.Descriptor, unknown []string) {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			wanted[strings.ToLower(n)] = false
		}
	}

	for _, d := range descs {
		key := strings.ToLower(d.Name)
		if _, ok := wanted[key]; ok {
			wanted[key] = true
			selected = append(selected, d)
		}
	}

	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" && !wanted[strings.ToLower(n)] {
			unknown = append(unknown, n)
		}
	}
	return selected, unknown
}

// Doer lets callers pass *http.Client or a test double.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// UpdateFromRemote downloads the site database and installs it
// atomically, retrying transient failures with exponential backoff.
// The payload is parsed before install so a truncated download never
// clobbers a working database.
func UpdateFromRemote(ctx context.Context, client Doer, userAgent, destPath string) error {
	var body []byte
	var lastErr error

	for attempt := 0; attempt < updateAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(100*(1<<attempt)) * time.Millisecond):
			}
		}

		body, lastErr = fetch(ctx, client, userAgent)
		if lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		return errors.Wrap(lastErr, "download catalog")
	}

	if _, err := Parse(body); err != nil {
		return errors.Wrap(err, "downloaded catalog")
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return errors.Wrap(err, "create catalog dir")
	}

	tmp := destPath + ".tmp"
	if err := os.WriteFile(tmp, body, 0o600); err != nil {
		return errors.Wrap(err, "write catalog")
	}
	return errors.Wrap(os.Rename(tmp, destPath), "install catalog")
}

func fetch(ctx context.Context, client Doer, userAgent string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, RemoteURL, nil)
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrSnippet))
		return nil, errors.Errorf("unexpected status %s (%s)", resp.Status, string(snippet))
	}

	return io.ReadAll(resp.Body)
}
