package console

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/imamik/hostup/internal/provisioning"
)

// Summary prints a table of step outcomes and the warnings of a finished run.
func Summary(w io.Writer, st *provisioning.State) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("STEP", "OUTCOME", "TIME")
	for _, s := range st.Steps {
		t.Row(s.Step, s.Outcome.String(), s.Duration.Round(time.Millisecond).String())
	}
	_, _ = fmt.Fprintln(w, t.String())

	if len(st.Warnings) > 0 {
		_, _ = fmt.Fprintf(w, "\n%s %d warning(s):\n", markWarn, len(st.Warnings))
		for _, warn := range st.Warnings {
			_, _ = fmt.Fprintf(w, "  - %s: %s\n", warn.Step, warn.Message)
			if warn.Remedy != "" {
				_, _ = fmt.Fprintf(w, "    %s\n", strings.ReplaceAll(warn.Remedy, "\n", "\n    "))
			}
		}
	}
	if st.ReportFile != "" {
		_, _ = fmt.Fprintf(w, "\nCredentials written to %s\n", st.ReportFile)
	}
}
