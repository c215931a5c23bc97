// Package scan fans one probe per site descriptor out over a bounded
// worker pool and collects matches as they complete.
package scan

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/deepsearch-project/deepsearch/internal/probe"
)

const DefaultMaxConcurrency = 50

var (
	// ErrNoSites distinguishes "nothing to scan" from the normal
	// zero-match outcome of a scan that ran.
	ErrNoSites = errors.New("no sites to scan")

	ErrNoUsername = errors.New("no username to scan")
)

type Engine struct {
	dispatcher *probe.Dispatcher
	cfg        Config
}

// New validates the configuration up front; nothing is dispatched with
// an invalid cap or timeout. Zero values pick the documented defaults.
func New(client *http.Client, cfg Config) (*Engine, error) {
	if cfg.MaxConcurrency < 0 {
		return nil, fmt.Errorf("max concurrency must be positive, got %d", cfg.MaxConcurrency)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}
	if cfg.MaxBodyBytes < 0 {
		return nil, fmt.Errorf("max body bytes must be positive, got %d", cfg.MaxBodyBytes)
	}
	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = probe.DefaultTimeout
	}

	return &Engine{
		dispatcher: probe.NewDispatcher(client, probe.Config{
			UserAgent:    cfg.UserAgent,
			Timeout:      cfg.Timeout,
			MaxBodyBytes: cfg.MaxBodyBytes,
		}),
		cfg: cfg,
	}, nil
}

// Scan probes every descriptor for username and returns the Found
// outcomes in completion order. Exactly one outcome is produced per
// descriptor; probe failures never abort the scan. Cancelling ctx stops
// admitting new probes and lets in-flight ones finish or time out.
// Each call builds fresh state, so an Engine can scan repeatedly.
func (e *Engine) Scan(ctx context.Context, username string, descriptors []probe.Descriptor) (Result, error) {
	if username == "" {
		return Result{}, ErrNoUsername
	}
	if len(descriptors) == 0 {
		return Result{}, ErrNoSites
	}

	start := time.Now()
	total := len(descriptors)
	workers := min(e.cfg.MaxConcurrency, total)

	jobs := make(chan probe.Descriptor)
	outcomes := make(chan probe.Outcome, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		// Worker goroutines; the pool size is a hard admission limit.
		go func() {
			defer wg.Done()
			for desc := range jobs {
				outcomes <- e.dispatcher.Dispatch(ctx, username, desc)
			}
		}()
	}

	// Close outcomes once every worker has drained its jobs.
	go func() {
		defer close(outcomes)
		wg.Wait()
	}()

	go func() {
		defer close(jobs)
		for _, desc := range descriptors {
			select {
			case <-ctx.Done():
				return
			case jobs <- desc:
			}
		}
	}()

	res := Result{}
	completed := 0
	for out := range outcomes {
		completed++

		if out.Verdict == probe.ProbeFailed && out.Err != nil && e.cfg.Logger != nil {
			e.cfg.Logger.WithFields(logrus.Fields{
				"site": out.Site,
				"err":  out.Err,
			}).Debug("probe failed")
		}

		if e.cfg.OnOutcome != nil {
			e.cfg.OnOutcome(out)
		}
		if out.Verdict == probe.Found {
			res.Matches = append(res.Matches, out)
		}
		if e.cfg.OnProgress != nil {
			e.cfg.OnProgress(Progress{Completed: completed, Total: total})
		}
	}

	res.Attempted = completed
	res.Elapsed = time.Since(start)
	return res, ctx.Err()
}
