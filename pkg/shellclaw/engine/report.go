// Package engine – report.go renders invocation results as chat reports.
package engine

import (
	"fmt"
	"strings"

	"github.com/jholhewres/shellclaw/pkg/shellclaw/shell"
)

// formatReport renders one invocation result. osName and display are both
// optional: single-step reports show the instruction on a $-line, while
// multi-step reports announce it separately and leave display empty.
// Output streams are summarized so the report stays transport-sized.
func formatReport(osName, display string, res shell.Result) string {
	var b strings.Builder
	if osName != "" {
		fmt.Fprintf(&b, "OS: %s\n", osName)
	}
	if display != "" {
		fmt.Fprintf(&b, "$ %s\n", display)
	}
	fmt.Fprintf(&b, "exit=%d\n", res.ExitCode)
	if res.Stdout != "" {
		fmt.Fprintf(&b, "stdout:\n%s\n", shell.Summarize(res.Stdout, shell.SummaryLimit))
	}
	if res.Stderr != "" {
		fmt.Fprintf(&b, "stderr:\n%s", shell.Summarize(res.Stderr, shell.SummaryLimit))
	}
	return b.String()
}
