// Package output streams scan results to the terminal and mirrors them
// into a plain-text buffer for file output.
package output

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/fatih/color"

	"github.com/deepsearch-project/deepsearch/internal/probe"
	"github.com/deepsearch-project/deepsearch/internal/scan"
)

type Printer struct {
	noColor      bool
	verbose      bool
	showProgress bool

	out    io.Writer
	logger *log.Logger
	stream *log.Logger // optional plain mirror (out.txt buffer)

	progressLive bool
}

func NewPrinter(stdout io.Writer, noColor, verbose, showProgress bool, buf *strings.Builder) *Printer {
	p := &Printer{
		noColor:      noColor,
		verbose:      verbose,
		showProgress: showProgress,
		out:          stdout,
		logger:       log.New(stdout, "", 0),
	}
	if buf != nil {
		p.stream = log.New(buf, "", 0)
	}
	return p
}

// Outcome prints one completed probe. Called from the scan collector
// goroutine only, so no locking is needed.
func (p *Printer) Outcome(out probe.Outcome) {
	p.clearProgress()

	// File output is always plain.
	if p.stream != nil {
		switch out.Verdict {
		case probe.Found:
			p.stream.Printf("[+] %s: %s", out.Site, out.URL)
		case probe.NotFound:
			if p.verbose {
				p.stream.Printf("[-] %s: Not Found!", out.Site)
			}
		case probe.ProbeFailed:
			if p.verbose {
				p.stream.Printf("[!] %s: ERROR: %v", out.Site, out.Err)
			}
		}
	}

	switch out.Verdict {
	case probe.Found:
		if p.noColor {
			p.logger.Printf("[+] %s: %s", out.Site, out.URL)
		} else {
			p.logger.Printf("[%s] %s: %s", color.HiGreenString("+"), color.HiWhiteString(out.Site), out.URL)
		}

	case probe.NotFound:
		if !p.verbose {
			return
		}
		if p.noColor {
			p.logger.Printf("[-] %s: Not Found!", out.Site)
		} else {
			p.logger.Printf("[%s] %s: %s", color.HiRedString("-"), out.Site, color.HiYellowString("Not Found!"))
		}

	case probe.ProbeFailed:
		if !p.verbose {
			return
		}
		if p.noColor {
			p.logger.Printf("[!] %s: ERROR: %v", out.Site, out.Err)
		} else {
			p.logger.Printf("[%s] %s: %s: %s",
				color.HiRedString("!"),
				out.Site,
				color.HiMagentaString("ERROR"),
				color.HiRedString(fmt.Sprintf("%v", out.Err)),
			)
		}
	}
}

// Progress redraws an in-place completion line. Result lines clear it
// first, so the two never interleave.
func (p *Printer) Progress(pr scan.Progress) {
	if !p.showProgress {
		return
	}
	fmt.Fprintf(p.out, "\r[%3.0f%%] %d/%d", pr.Fraction()*100, pr.Completed, pr.Total)
	p.progressLive = true
}

// Done clears any remaining progress line.
func (p *Printer) Done() {
	p.clearProgress()
}

func (p *Printer) clearProgress() {
	if !p.progressLive {
		return
	}
	fmt.Fprint(p.out, "\r", strings.Repeat(" ", 24), "\r")
	p.progressLive = false
}
