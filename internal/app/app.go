// Package app wires the catalog, scan engine, printer and exports into
// the deepsearch command.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/k0kubun/pp/v3"
	"github.com/sirupsen/logrus"

	"github.com/deepsearch-project/deepsearch/internal/banner"
	"github.com/deepsearch-project/deepsearch/internal/catalog"
	"github.com/deepsearch-project/deepsearch/internal/cli"
	"github.com/deepsearch-project/deepsearch/internal/config"
	"github.com/deepsearch-project/deepsearch/internal/httpx"
	"github.com/deepsearch-project/deepsearch/internal/output"
	"github.com/deepsearch-project/deepsearch/internal/probe"
	"github.com/deepsearch-project/deepsearch/internal/report"
	"github.com/deepsearch-project/deepsearch/internal/scan"
	"github.com/deepsearch-project/deepsearch/internal/update"
)

const Version = "1.0.0"

func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fileCfg, err := config.Load(config.DefaultFile)
	if err != nil {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return 2
	}

	opts, usernames, err := cli.Parse(args, defaultsFrom(fileCfg), stdout, stderr)
	if err != nil {
		if errors.Is(err, cli.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err.Error())
		return 2
	}

	color.NoColor = opts.NoColor
	banner.Print(stdout)

	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableColors: opts.NoColor})
	if opts.Debug {
		logger.SetLevel(logrus.DebugLevel)

		printer := pp.New()
		printer.SetOutput(stderr)
		printer.SetColoringEnabled(!opts.NoColor)
		_, _ = printer.Println("options:", opts)
	}

	if opts.UserAgent == "" {
		opts.UserAgent = httpx.DefaultUserAgent
	}

	httpClient, err := httpx.NewClient(httpx.ClientConfig{
		Timeout:     opts.Timeout,
		WithTor:     opts.WithTor,
		TorProxyURL: httpx.DefaultTorProxyURL,
	})
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize HTTP client: %v\n", err)
		return 1
	}

	if opts.CheckUpdate {
		return runCheckUpdate(ctx, stdout, stderr, httpClient)
	}

	descriptors, err := loadCatalog(ctx, httpClient, opts, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "catalog error: %v\n", err)
		return 1
	}

	if opts.Validate {
		return runValidate(stdout, descriptors)
	}

	if len(opts.Sites) > 0 {
		var unknown []string
		descriptors, unknown = catalog.Filter(descriptors, opts.Sites)
		if len(unknown) > 0 {
			warn(stdout, opts.NoColor, "Unknown sites ignored: "+strings.Join(unknown, ", "))
		}
	}
	if opts.Top > 0 {
		descriptors = catalog.Top(descriptors, opts.Top)
	}

	if len(descriptors) == 0 {
		// An empty catalog is a distinct failure, not "no matches".
		fmt.Fprintln(stderr, "no sites to scan: the catalog is empty after filtering")
		return 1
	}

	if len(usernames) == 0 {
		usernames = promptUsernames(stdout, os.Stdin)
		if len(usernames) == 0 {
			fmt.Fprintln(stderr, "no usernames provided")
			return 2
		}
	}

	if opts.WithTor {
		fmt.Fprintln(stdout, "Using tor...")
	}

	for _, username := range usernames {
		username = strings.TrimSpace(username)
		if username == "" {
			continue
		}

		if code := scanOne(ctx, httpClient, logger, opts, username, descriptors, stdout, stderr); code != 0 {
			return code
		}
		if ctx.Err() != nil {
			fmt.Fprintln(stderr, "interrupted")
			return 1
		}
	}

	return 0
}

func defaultsFrom(f config.File) cli.Options {
	def := cli.DefaultOptions()
	def.DataFile = f.Database
	def.ResultsDir = f.ResultsDir
	def.UserAgent = f.UserAgent
	def.Concurrency = f.Concurrency
	def.Top = f.Top
	def.WithTor = f.Tor
	def.NoColor = f.NoColor
	if f.TimeoutSecs > 0 {
		def.Timeout = time.Duration(f.TimeoutSecs) * time.Second
	}
	return def
}

func scanOne(
	ctx context.Context,
	httpClient *http.Client,
	logger *logrus.Logger,
	opts cli.Options,
	username string,
	descriptors []probe.Descriptor,
	stdout, stderr io.Writer,
) int {
	if opts.NoColor {
		fmt.Fprintf(stdout, "\nSearching for %s on %d sites:\n", username, len(descriptors))
	} else {
		fmt.Fprintf(stdout, "\nSearching for %s on %d sites:\n", color.HiGreenString(username), len(descriptors))
	}

	// Plain mirror of the result lines for out.txt.
	var buf strings.Builder
	showProgress := !opts.Verbose // the in-place line would fight verbose output
	printer := output.NewPrinter(stdout, opts.NoColor, opts.Verbose, showProgress, &buf)

	engine, err := scan.New(httpClient, scan.Config{
		UserAgent:      opts.UserAgent,
		Timeout:        opts.Timeout,
		MaxConcurrency: opts.Concurrency,
		Logger:         logger,
		OnOutcome:      printer.Outcome,
		OnProgress:     printer.Progress,
	})
	if err != nil {
		fmt.Fprintf(stderr, "invalid scan configuration: %v\n", err)
		return 1
	}

	res, err := engine.Scan(ctx, username, descriptors)
	printer.Done()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "scan error for %q: %v\n", username, err)
		return 1
	}

	if len(res.Matches) == 0 {
		fmt.Fprintln(stdout, "No matches found.")
	}

	fmt.Fprintln(stdout)
	if err := report.RenderSummary(stdout, report.Summarize(username, res)); err != nil {
		fmt.Fprintf(stderr, "failed to render summary: %v\n", err)
	}

	if !opts.NoOutput {
		userDir := filepath.Join(opts.ResultsDir, username)
		if err := os.MkdirAll(userDir, 0o755); err != nil {
			fmt.Fprintf(stderr, "failed to create results dir %q: %v\n", userDir, err)
			return 1
		}
		outPath := filepath.Join(userDir, "out.txt")
		if err := os.WriteFile(outPath, []byte(buf.String()), 0o600); err != nil {
			fmt.Fprintf(stderr, "failed to write %q: %v\n", outPath, err)
			return 1
		}
	}

	if opts.CSVPath != "" {
		if err := exportMatches(opts.CSVPath, username, res.Matches, report.WriteCSV); err != nil {
			fmt.Fprintf(stderr, "csv export: %v\n", err)
			return 1
		}
	}
	if opts.JSONPath != "" {
		if err := exportMatches(opts.JSONPath, username, res.Matches, report.WriteJSON); err != nil {
			fmt.Fprintf(stderr, "json export: %v\n", err)
			return 1
		}
	}

	return 0
}

// exportMatches writes one export file; "{}" in the path is replaced
// with the username so multi-username runs don't clobber each other.
func exportMatches(
	path, username string,
	matches []probe.Outcome,
	write func(io.Writer, []probe.Outcome) error,
) error {
	path = strings.ReplaceAll(path, "{}", username)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, matches); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func loadCatalog(ctx context.Context, client httpx.Doer, opts cli.Options, stdout io.Writer) ([]probe.Descriptor, error) {
	_, statErr := os.Stat(opts.DataFile)
	fileExists := statErr == nil

	if opts.UpdateBeforeRun || !fileExists {
		if opts.NoColor {
			fmt.Fprint(stdout, "[!] Updating site database: Downloading...")
		} else {
			fmt.Fprintf(stdout, "[%s] Updating site database: %s",
				color.HiBlueString("!"),
				color.HiYellowString("Downloading..."),
			)
		}

		if err := catalog.UpdateFromRemote(ctx, client, httpx.DefaultUserAgent, opts.DataFile); err != nil {
			fmt.Fprintln(stdout)
			if !fileExists {
				return nil, fmt.Errorf("failed to download site database and no local copy exists: %w", err)
			}
			warn(stdout, opts.NoColor, fmt.Sprintf("Failed to update site database: %v (using existing)", err))
		} else {
			if opts.NoColor {
				fmt.Fprintln(stdout, " [Done]")
			} else {
				fmt.Fprintf(stdout, " [%s]\n", color.GreenString("Done"))
			}
		}
	}

	return catalog.Load(opts.DataFile)
}

func runValidate(stdout io.Writer, descriptors []probe.Descriptor) int {
	problems := catalog.Lint(descriptors)
	if len(problems) == 0 {
		fmt.Fprintf(stdout, "All %d catalog entries look usable.\n", len(descriptors))
		return 0
	}

	for _, p := range problems {
		fmt.Fprintf(stdout, "[-] %s\n", p)
	}
	fmt.Fprintf(stdout, "\n%d problem(s) across %d catalog entries.\n", len(problems), len(descriptors))
	return 1
}

func runCheckUpdate(ctx context.Context, stdout, stderr io.Writer, client httpx.Doer) int {
	latest, newer, err := update.CheckLatest(ctx, client, Version)
	if err != nil {
		fmt.Fprintf(stderr, "update check failed: %v\n", err)
		return 1
	}

	if newer {
		fmt.Fprintf(stdout, "A newer release is available: %s (running %s)\n", latest, Version)
	} else {
		fmt.Fprintf(stdout, "deepsearch %s is up to date (latest release: %s)\n", Version, latest)
	}
	return 0
}

func promptUsernames(stdout io.Writer, stdin io.Reader) []string {
	fmt.Fprint(stdout, "Enter usernames to search for, separated by spaces: ")
	r := bufio.NewReader(stdin)
	line, _ := r.ReadString('\n')
	return strings.Fields(strings.TrimSpace(line))
}

func warn(stdout io.Writer, noColor bool, msg string) {
	if noColor {
		fmt.Fprintf(stdout, "[!] %s\n", msg)
	} else {
		fmt.Fprintf(stdout, "[%s] %s\n", color.HiRedString("!"), color.HiYellowString(msg))
	}
}
