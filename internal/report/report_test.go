package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepsearch-project/deepsearch/internal/probe"
	"github.com/deepsearch-project/deepsearch/internal/scan"
)

func sampleMatches() []probe.Outcome {
	return []probe.Outcome{
		{Site: "SiteA", URL: "https://a.test/alice", Verdict: probe.Found, Latency: 120 * time.Millisecond},
		{Site: "SiteB", URL: "https://b.test/alice?tab=repos", Verdict: probe.Found, Latency: 480 * time.Millisecond},
	}
}

func TestSummarize(t *testing.T) {
	res := scan.Result{
		Matches:   sampleMatches(),
		Attempted: 200,
		Elapsed:   3 * time.Second,
	}

	s := Summarize("alice", res)
	assert.Equal(t, "alice", s.Username)
	assert.Equal(t, 2, s.Matches)
	assert.Equal(t, 300*time.Millisecond, s.MeanLatency)
	assert.Equal(t, 200, s.Attempted)
	assert.Equal(t, 3*time.Second, s.Elapsed)
}

func TestSummarizeNoMatches(t *testing.T) {
	s := Summarize("alice", scan.Result{Attempted: 50})
	assert.Zero(t, s.MeanLatency)
	assert.Zero(t, s.Matches)
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	err := RenderSummary(&buf, Summary{
		Username:    "alice",
		Matches:     2,
		MeanLatency: 300 * time.Millisecond,
		Attempted:   200,
		Elapsed:     3 * time.Second,
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "Profiles found")
	assert.Contains(t, out, "200")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleMatches()))

	want := "site,url,latency_ms\n" +
		"SiteA,https://a.test/alice,120\n" +
		"SiteB,https://b.test/alice?tab=repos,480\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSVNoMatches(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "site,url,latency_ms\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleMatches()))

	// URLs are not HTML-escaped.
	assert.Contains(t, buf.String(), "https://b.test/alice?tab=repos")

	var records []Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, Record{Site: "SiteA", URL: "https://a.test/alice", LatencyMS: 120}, records[0])
}
