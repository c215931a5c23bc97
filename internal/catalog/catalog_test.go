package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepsearch-project/deepsearch/internal/probe"
)

const sampleCatalog = `{
  "$schema": "https://example.test/schema.json",
  "GitHub": {
    "errorType": "status_code",
    "url": "https://github.com/{}",
    "urlMain": "https://github.com/",
    "regexCheck": "^[a-zA-Z0-9](?:[a-zA-Z0-9]|-(?=[a-zA-Z0-9])){0,38}$"
  },
  "Steam": {
    "errorType": "message",
    "errorMsg": "The specified profile could not be found",
    "url": "https://steamcommunity.com/id/{}"
  },
  "Forum": {
    "errorType": "message",
    "errorMsg": ["Member not found", "Page you requested does not exist"],
    "url": "https://forum.test/u/{}",
    "urlProbe": "https://forum.test/api/users/{}.json"
  },
  "Pinterest": {
    "errorType": "response_url",
    "url": "https://www.pinterest.com/{}/"
  },
  "Weird": {
    "errorType": "captcha",
    "url": "https://weird.test/{}"
  }
}`

func TestParse(t *testing.T) {
	descs, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)
	require.Len(t, descs, 5) // $schema skipped

	// Document order preserved.
	names := make([]string, 0, len(descs))
	for _, d := range descs {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"GitHub", "Steam", "Forum", "Pinterest", "Weird"}, names)

	github := descs[0]
	assert.Equal(t, probe.RuleStatusCode, github.Rule.Kind)
	assert.Equal(t, "https://github.com/{}", github.URLTemplate)
	assert.NotEmpty(t, github.RegexCheck)

	steam := descs[1]
	assert.Equal(t, probe.RuleMessage, steam.Rule.Kind)
	assert.Equal(t, []string{"The specified profile could not be found"}, steam.Rule.Markers)

	forum := descs[2]
	assert.Equal(t, []string{"Member not found", "Page you requested does not exist"}, forum.Rule.Markers)
	assert.Equal(t, "https://forum.test/api/users/{}.json", forum.ProbeTemplate)

	assert.Equal(t, probe.RuleResponseURL, descs[3].Rule.Kind)

	// Unknown errorType is kept, not dropped; the probe rejects it later.
	assert.Equal(t, probe.RuleKind("captcha"), descs[4].Rule.Kind)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("not json"))
	assert.Error(t, err)

	_, err = Parse([]byte(`[1, 2, 3]`))
	assert.Error(t, err)
}

func TestTop(t *testing.T) {
	descs, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)

	assert.Len(t, Top(descs, 2), 2)
	assert.Equal(t, "GitHub", Top(descs, 2)[0].Name)
	assert.Len(t, Top(descs, 0), 5)  // 0 means no truncation
	assert.Len(t, Top(descs, 99), 5) // beyond length is a no-op
}

func TestFilter(t *testing.T) {
	descs, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)

	selected, unknown := Filter(descs, []string{"github", "PINTEREST", "nope"})
	require.Len(t, selected, 2)
	assert.Equal(t, "GitHub", selected[0].Name)
	assert.Equal(t, "Pinterest", selected[1].Name)
	assert.Equal(t, []string{"nope"}, unknown)
}

func TestLint(t *testing.T) {
	descs := []probe.Descriptor{
		{Name: "ok", URLTemplate: "https://ok.test/{}", Rule: probe.DetectionRule{Kind: probe.RuleStatusCode}},
		{Name: "no-placeholder", URLTemplate: "https://bad.test/user", Rule: probe.DetectionRule{Kind: probe.RuleStatusCode}},
		{Name: "no-url", Rule: probe.DetectionRule{Kind: probe.RuleStatusCode}},
		{Name: "no-markers", URLTemplate: "https://m.test/{}", Rule: probe.DetectionRule{Kind: probe.RuleMessage}},
		{Name: "bad-type", URLTemplate: "https://t.test/{}", Rule: probe.DetectionRule{Kind: "captcha"}},
		{Name: "bad-regex", URLTemplate: "https://r.test/{}", RegexCheck: "([unclosed", Rule: probe.DetectionRule{Kind: probe.RuleStatusCode}},
		{Name: "dotnet-regex", URLTemplate: "https://d.test/{}", RegexCheck: `^[a-z](?:[a-z0-9]|-(?=[a-z0-9])){0,38}$`, Rule: probe.DetectionRule{Kind: probe.RuleStatusCode}},
	}

	problems := Lint(descs)

	sites := make(map[string]int)
	for _, p := range problems {
		sites[p.Site]++
	}
	assert.Zero(t, sites["ok"])
	assert.Zero(t, sites["dotnet-regex"]) // lookahead compiles under regexp2
	assert.Equal(t, 1, sites["no-placeholder"])
	assert.Equal(t, 1, sites["no-url"])
	assert.Equal(t, 1, sites["no-markers"])
	assert.Equal(t, 1, sites["bad-type"])
	assert.Equal(t, 1, sites["bad-regex"])
}

func TestUpdateFromRemote(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(sampleCatalog))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "db", "data.json")
	err := UpdateFromRemote(context.Background(), rewriteClient{srv}, "test-agent", dest)
	require.NoError(t, err)

	assert.Equal(t, int64(3), calls.Load()) // two transient failures retried

	raw, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, sampleCatalog, string(raw))

	_, err = os.Stat(dest + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestUpdateFromRemoteRejectsInvalidPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<!doctype html>oops"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "data.json")
	err := UpdateFromRemote(context.Background(), rewriteClient{srv}, "", dest)
	require.Error(t, err)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

// rewriteClient redirects the hardcoded remote URL at a test server.
type rewriteClient struct {
	srv *httptest.Server
}

func (c rewriteClient) Do(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	target, err := clone.URL.Parse(c.srv.URL)
	if err != nil {
		return nil, err
	}
	clone.URL = target
	clone.Host = ""
	return c.srv.Client().Do(clone)
}
