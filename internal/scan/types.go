package scan

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/deepsearch-project/deepsearch/internal/probe"
)

type Config struct {
	UserAgent      string
	Timeout        time.Duration // per probe, default 10s
	MaxConcurrency int           // default 50
	MaxBodyBytes   int64

	// Logger receives probe-failure diagnostics at debug level.
	Logger logrus.FieldLogger

	// OnOutcome is called for every completed probe, match or not.
	// OnProgress fires after each completion, regardless of verdict.
	// Both are invoked from a single goroutine, in completion order.
	OnOutcome  func(probe.Outcome)
	OnProgress func(Progress)
}

// Progress is the completed/total tick emitted after every probe.
type Progress struct {
	Completed int
	Total     int
}

func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Completed) / float64(p.Total)
}

// Result aggregates one scan invocation. Matches holds only Found
// outcomes, ordered by completion, not by catalog order.
type Result struct {
	Matches   []probe.Outcome
	Attempted int
	Elapsed   time.Duration
}
