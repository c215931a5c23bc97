package catalog

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/deepsearch-project/deepsearch/internal/probe"
)

// Problem is one offline finding against a catalog entry.
type Problem struct {
	Site   string
	Detail string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s", p.Site, p.Detail)
}

// Lint validates descriptors without touching the network: template
// placeholders, known rule kinds, message markers, and regexCheck
// patterns. The sherlock database carries .NET-flavored regexes, hence
// regexp2 rather than the stdlib engine. Findings are per site; a bad
// entry never affects any other.
func Lint(descs []probe.Descriptor) []Problem {
	var problems []Problem
	report := func(site, format string, args ...any) {
		problems = append(problems, Problem{Site: site, Detail: fmt.Sprintf(format, args...)})
	}

	for _, d := range descs {
		if d.URLTemplate == "" {
			report(d.Name, "missing url")
		} else if !strings.Contains(d.URLTemplate, "{}") {
			report(d.Name, "url %q has no {} placeholder", d.URLTemplate)
		}

		if d.ProbeTemplate != "" && !strings.Contains(d.ProbeTemplate, "{}") {
			report(d.Name, "urlProbe %q has no {} placeholder", d.ProbeTemplate)
		}

		switch d.Rule.Kind {
		case probe.RuleStatusCode, probe.RuleResponseURL:
		case probe.RuleMessage:
			if len(d.Rule.Markers) == 0 {
				report(d.Name, "errorType is message but no errorMsg given")
			}
		default:
			report(d.Name, "unknown errorType %q", d.Rule.Kind)
		}

		if d.RegexCheck != "" {
			if _, err := regexp2.Compile(d.RegexCheck, 0); err != nil {
				report(d.Name, "regexCheck does not compile: %v", err)
			}
		}
	}
	return problems
}
