package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grokify/forwardport/internal/forwardport"
)

const (
	maxTitleLen = 40
	maxUserLen  = 15
)

// TextFormatter formats results as one fixed-width line per PR:
//
//	number  forward_ported  label  base  user  title  forward_ports
type TextFormatter struct{}

// NewTextFormatter creates a new text formatter.
func NewTextFormatter() *TextFormatter {
	return &TextFormatter{}
}

// Format formats results as text lines.
func (f *TextFormatter) Format(results []forwardport.Result) (string, error) {
	rows := make([]string, 0, len(results))

	for _, res := range results {
		rows = append(rows, fmt.Sprintf("%-4d  %d  %-1d  %-13s  %-15s  %-40s  %s",
			res.PR.Number,
			boolToInt(res.ForwardPorted),
			boolToInt(res.PR.Label),
			res.PR.Base.Ref,
			sanitizeUser(res.PR.User),
			sanitizeTitle(res.PR.Title),
			joinNumbers(res.ForwardPorts()),
		))
	}

	return strings.Join(rows, "\n"), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var whitespaceReplacer = strings.NewReplacer("\n", "_", " ", "_")

// printableASCII replaces whitespace with underscores and anything outside
// printable ASCII with '?'.
func printableASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 || r > 126 {
			return '?'
		}
		return r
	}, whitespaceReplacer.Replace(s))
}

func sanitizeTitle(s string) string {
	return truncate(printableASCII(s), maxTitleLen)
}

func sanitizeUser(s string) string {
	return truncate(printableASCII(s), maxUserLen)
}

// joinNumbers renders numbers comma separated, or "-1" when there are none.
func joinNumbers(numbers []int) string {
	if len(numbers) == 0 {
		return "-1"
	}
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
