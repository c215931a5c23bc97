// Package cli parses the deepsearch command line.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
)

var ErrHelp = errors.New("help requested")

type Options struct {
	NoColor         bool
	NoOutput        bool
	Verbose         bool
	Debug           bool
	UpdateBeforeRun bool
	CheckUpdate     bool
	Validate        bool
	WithTor         bool

	DataFile    string
	Sites       []string
	Top         int
	Timeout     time.Duration
	Concurrency int
	ResultsDir  string
	UserAgent   string
	CSVPath     string
	JSONPath    string
}

// DefaultOptions are the package defaults before any config file or
// flag is applied.
func DefaultOptions() Options {
	return Options{
		DataFile:    "data.json",
		Timeout:     10 * time.Second,
		Concurrency: 50,
		ResultsDir:  "results",
	}
}

const usageText = `
usage:
  deepsearch [flags] USERNAME [USERNAMES...]
  deepsearch --validate

positional arguments:
  USERNAMES             one or more usernames to search for

flags:
  -h, --help            show this help message and exit
  --no-color            disable colored stdout output
  --no-output           disable file output
  --update              update the site database before running
  --check-update        check for a newer deepsearch release and exit
  --validate            lint the site database offline and exit
  -t, --tor             use tor proxy
  -v, --verbose         also print misses and probe errors
  --debug               debug logging and effective-option dump

options:
  --database PATH       site database path (default: data.json)
  --sites S1,S2,...     restrict the scan to the named sites
  --top N               only scan the first N catalog sites (0 = all)
  --timeout SECONDS     per-probe timeout (default: 10)
  --concurrency N       max simultaneous probes (default: 50)
  --results DIR         output directory (default: results)
  --user-agent UA       override the request User-Agent
  --csv PATH            export matches as CSV ({} in PATH becomes the username)
  --json PATH           export matches as JSON ({} in PATH becomes the username)
`

// Parse reads flags over def, which carries the defaults (package
// defaults, possibly overridden by a config file). Flags win.
func Parse(args []string, def Options, stdout, stderr io.Writer) (Options, []string, error) {
	opts := def
	var (
		help     bool
		sitesCSV string
		timeoutS int
	)

	fs := flag.NewFlagSet("deepsearch", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.Usage = func() {
		_, _ = fmt.Fprint(stdout, usageText)
	}

	fs.BoolVar(&help, "h", false, "show help")
	fs.BoolVar(&help, "help", false, "show help")

	fs.BoolVar(&opts.NoColor, "no-color", def.NoColor, "disable colored output")
	fs.BoolVar(&opts.NoOutput, "no-output", def.NoOutput, "disable file output")
	fs.BoolVar(&opts.UpdateBeforeRun, "update", false, "update site database before run")
	fs.BoolVar(&opts.CheckUpdate, "check-update", false, "check for a newer release")
	fs.BoolVar(&opts.Validate, "validate", false, "lint the site database offline")
	fs.BoolVar(&opts.Verbose, "v", def.Verbose, "verbose output")
	fs.BoolVar(&opts.Verbose, "verbose", def.Verbose, "verbose output")
	fs.BoolVar(&opts.Debug, "debug", false, "debug logging")
	fs.BoolVar(&opts.WithTor, "t", def.WithTor, "use tor proxy")
	fs.BoolVar(&opts.WithTor, "tor", def.WithTor, "use tor proxy")

	fs.StringVar(&opts.DataFile, "database", def.DataFile, "site database path")
	fs.StringVar(&sitesCSV, "sites", "", "comma-separated site list")
	fs.IntVar(&opts.Top, "top", def.Top, "only scan the first N catalog sites")
	fs.IntVar(&timeoutS, "timeout", int(def.Timeout/time.Second), "per-probe timeout in seconds")
	fs.IntVar(&opts.Concurrency, "concurrency", def.Concurrency, "max simultaneous probes")
	fs.StringVar(&opts.ResultsDir, "results", def.ResultsDir, "results output directory")
	fs.StringVar(&opts.UserAgent, "user-agent", def.UserAgent, "request User-Agent")
	fs.StringVar(&opts.CSVPath, "csv", "", "CSV export path")
	fs.StringVar(&opts.JSONPath, "json", "", "JSON export path")

	if err := fs.Parse(args); err != nil {
		return Options{}, nil, err
	}
	if help {
		fs.Usage()
		return Options{}, nil, ErrHelp
	}

	if timeoutS <= 0 {
		// Don't allow zero or negative timeouts; reset to default.
		timeoutS = 10
		warn(stdout, opts.NoColor, "Invalid timeout value; using default of 10 seconds.")
	}
	opts.Timeout = time.Duration(timeoutS) * time.Second

	if opts.Concurrency <= 0 {
		opts.Concurrency = 50
		warn(stdout, opts.NoColor, "Invalid concurrency value; using default of 50.")
	}
	if opts.Top < 0 {
		opts.Top = 0
	}

	if sitesCSV != "" {
		raw := strings.Split(sitesCSV, ",")
		opts.Sites = make([]string, 0, len(raw))
		for _, s := range raw {
			s = strings.TrimSpace(s)
			if s != "" {
				opts.Sites = append(opts.Sites, s)
			}
		}
		// When specific sites are requested, show misses and errors too.
		opts.Verbose = true
	}

	usernames := fs.Args()
	return opts, usernames, nil
}

func warn(stdout io.Writer, noColor bool, msg string) {
	if noColor {
		fmt.Fprintf(stdout, "[!] %s\n", msg)
	} else {
		fmt.Fprintf(stdout, "[%s] %s\n", color.HiRedString("!"), color.HiYellowString(msg))
	}
}
