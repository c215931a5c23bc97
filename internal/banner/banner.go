package banner

import (
	"io"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
)

// Print renders the startup banner. The figure itself is plain text so
// it survives --no-color and file redirection.
func Print(w io.Writer) {
	fig := figure.NewFigure("deepsearch", "doom", true)
	figure.Write(w, fig)

	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)

	_, _ = cyan.Fprintln(w, "════════════════════════════════════════════════")
	_, _ = green.Fprintln(w, "    Find usernames across social networks")
	_, _ = cyan.Fprintln(w, "════════════════════════════════════════════════")
}
