// Package report turns a finished scan into the things a user keeps:
// a summary table, CSV and JSON exports.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/pkg/errors"

	"github.com/deepsearch-project/deepsearch/internal/probe"
	"github.com/deepsearch-project/deepsearch/internal/scan"
)

// Record is the exported shape of one match.
type Record struct {
	Site      string `json:"site"`
	URL       string `json:"url"`
	LatencyMS int64  `json:"latency_ms"`
}

func Records(matches []probe.Outcome) []Record {
	records := make([]Record, 0, len(matches))
	for _, m := range matches {
		records = append(records, Record{
			Site:      m.Site,
			URL:       m.URL,
			LatencyMS: m.Latency.Milliseconds(),
		})
	}
	return records
}

// Summary carries the aggregate metrics of one scan: match count, mean
// match latency, coverage (sites attempted) and wall time.
type Summary struct {
	Username    string
	Matches     int
	MeanLatency time.Duration
	Attempted   int
	Elapsed     time.Duration
}

func Summarize(username string, res scan.Result) Summary {
	s := Summary{
		Username:  username,
		Matches:   len(res.Matches),
		Attempted: res.Attempted,
		Elapsed:   res.Elapsed,
	}

	if len(res.Matches) > 0 {
		var total time.Duration
		for _, m := range res.Matches {
			total += m.Latency
		}
		s.MeanLatency = total / time.Duration(len(res.Matches))
	}
	return s
}

func RenderSummary(w io.Writer, s Summary) error {
	table := tablewriter.NewTable(w, tablewriter.WithRenderer(
		renderer.NewBlueprint(tw.Rendition{Borders: tw.BorderNone}),
	))
	table.Append("Username", s.Username)
	table.Append("Profiles found", strconv.Itoa(s.Matches))
	table.Append("Mean latency", fmt.Sprintf("%d ms", s.MeanLatency.Milliseconds()))
	table.Append("Sites attempted", strconv.Itoa(s.Attempted))
	table.Append("Total time", s.Elapsed.Round(time.Millisecond).String())
	return table.Render()
}

func WriteCSV(w io.Writer, matches []probe.Outcome) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"site", "url", "latency_ms"}); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, r := range Records(matches) {
		row := []string{r.Site, r.URL, strconv.FormatInt(r.LatencyMS, 10)}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "write csv row for %s", r.Site)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

func WriteJSON(w io.Writer, matches []probe.Outcome) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(Records(matches)), "encode json")
}
