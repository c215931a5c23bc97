// Package probe issues a single HTTP request per site and classifies
// whether a username exists there. It is the leaf of the scan pipeline
// and has no dependencies on the rest of the repository.
package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxBodyBytes = 2 << 20 // 2 MiB cap on body reads
)

// RuleKind mirrors the catalog's errorType tokens. Unknown tokens are
// carried through unchanged and rejected at dispatch time, so one bad
// catalog entry never blocks the rest of a scan.
type RuleKind string

const (
	RuleStatusCode  RuleKind = "status_code"
	RuleMessage     RuleKind = "message"
	RuleResponseURL RuleKind = "response_url"
)

// DetectionRule is the per-site heuristic that turns a raw HTTP
// response into a verdict. Markers is only meaningful for RuleMessage;
// the verdict is Found iff none of the markers occurs in the body.
type DetectionRule struct {
	Kind    RuleKind
	Markers []string
}

// Descriptor describes how to probe one site. URLTemplate contains a
// single "{}" substitution point for the username and is the URL echoed
// back on the outcome. ProbeTemplate, when set, is an alternate URL to
// actually request (some sites expose an API endpoint that is cheaper
// or more reliable than the profile page).
type Descriptor struct {
	Name          string
	URLTemplate   string
	ProbeTemplate string
	RegexCheck    string // catalog metadata; validated offline, not applied here
	Rule          DetectionRule
}

type Verdict int

const (
	NotFound Verdict = iota
	Found
	ProbeFailed
)

func (v Verdict) String() string {
	switch v {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case ProbeFailed:
		return "probe_failed"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// Outcome is the result of probing one site. Latency is set only when a
// response was received and covers the round trip through full body
// consumption. Err is diagnostic; it never changes scan results.
type Outcome struct {
	Site    string
	URL     string
	Verdict Verdict
	Latency time.Duration
	Err     error
}

type Config struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
}

// Dispatcher executes probes against a shared, injected HTTP client.
// It holds no mutable state and is safe for concurrent use.
type Dispatcher struct {
	client *http.Client
	cfg    Config
}

func NewDispatcher(client *http.Client, cfg Config) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	return &Dispatcher{
		client: client,
		cfg:    cfg,
	}
}

// Dispatch probes one site for username. Every failure path collapses
// to a ProbeFailed outcome with the cause attached; nothing is retried
// and nothing panics.
func (d *Dispatcher) Dispatch(ctx context.Context, username string, desc Descriptor) Outcome {
	out := Outcome{Site: desc.Name}

	if username == "" {
		out.Verdict = ProbeFailed
		out.Err = fmt.Errorf("empty username")
		return out
	}
	if !strings.Contains(desc.URLTemplate, "{}") {
		out.Verdict = ProbeFailed
		out.Err = fmt.Errorf("url template %q has no {} placeholder", desc.URLTemplate)
		return out
	}

	profileURL := strings.ReplaceAll(desc.URLTemplate, "{}", username)
	out.URL = profileURL

	probeURL := profileURL
	if desc.ProbeTemplate != "" {
		probeURL = strings.ReplaceAll(desc.ProbeTemplate, "{}", username)
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		out.Verdict = ProbeFailed
		out.Err = err
		return out
	}
	if d.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", d.cfg.UserAgent)
	}

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		out.Verdict = ProbeFailed
		out.Err = err
		return out
	}
	defer resp.Body.Close()

	switch desc.Rule.Kind {
	case RuleStatusCode:
		if err := d.drain(resp.Body); err != nil {
			out.Verdict = ProbeFailed
			out.Err = err
			out.Latency = time.Since(start)
			return out
		}
		out.Latency = time.Since(start)

		// The catalog convention treats ANY status other than 404 as a
		// hit, server errors included. Preserved as-is; changing it
		// changes match semantics against real sites.
		if resp.StatusCode != http.StatusNotFound {
			out.Verdict = Found
		}

	case RuleMessage:
		body, err := d.readBody(resp.Body)
		out.Latency = time.Since(start)
		if err != nil {
			out.Verdict = ProbeFailed
			out.Err = err
			return out
		}
		if len(desc.Rule.Markers) == 0 {
			out.Verdict = ProbeFailed
			out.Err = fmt.Errorf("message rule without markers")
			return out
		}
		if !containsAny(body, desc.Rule.Markers) {
			out.Verdict = Found
		}

	case RuleResponseURL:
		if err := d.drain(resp.Body); err != nil {
			out.Verdict = ProbeFailed
			out.Err = err
			out.Latency = time.Since(start)
			return out
		}
		out.Latency = time.Since(start)

		finalURL := ""
		if resp.Request != nil && resp.Request.URL != nil {
			finalURL = resp.Request.URL.String()
		}

		// Exact string equality, no normalization: a site that
		// redirects nonexistent users to a generic page fails this.
		if finalURL == profileURL {
			out.Verdict = Found
		}

	default:
		out.Verdict = ProbeFailed
		out.Err = fmt.Errorf("unsupported detection rule %q", desc.Rule.Kind)
	}

	return out
}

func (d *Dispatcher) drain(r io.Reader) error {
	_, err := io.Copy(io.Discard, io.LimitReader(r, d.cfg.MaxBodyBytes))
	return err
}

func (d *Dispatcher) readBody(r io.Reader) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r, d.cfg.MaxBodyBytes))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func containsAny(body string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(body, m) {
			return true
		}
	}
	return false
}
