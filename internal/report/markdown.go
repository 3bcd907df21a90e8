package report

import (
	"fmt"
	"strings"

	"github.com/grokify/forwardport/internal/forwardport"
)

// MarkdownFormatter formats results as a Markdown table.
type MarkdownFormatter struct {
	// Verbose adds a section per PR listing its candidates per release.
	Verbose bool
}

// NewMarkdownFormatter creates a new Markdown formatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format formats results as Markdown.
func (f *MarkdownFormatter) Format(results []forwardport.Result) (string, error) {
	var sb strings.Builder

	missing := 0
	for _, res := range results {
		if !res.ForwardPorted {
			missing++
		}
	}

	sb.WriteString("# Forward Port Status\n\n")
	sb.WriteString(fmt.Sprintf("**Open PRs:** %d | **Missing forward ports:** %d\n\n", len(results), missing))

	if len(results) == 0 {
		sb.WriteString("No open PRs into release branches.\n")
		return sb.String(), nil
	}

	sb.WriteString("| PR | Base | Author | Forward ported | Label | Forward ports |\n")
	sb.WriteString("|----|------|--------|----------------|-------|---------------|\n")

	for _, res := range results {
		status := "❌"
		if res.ForwardPorted {
			status = "✅"
		}
		label := ""
		if res.PR.Label {
			label = "`forward port missing`"
		}

		sb.WriteString(fmt.Sprintf("| [#%d](%s) %s | `%s` | @%s | %s | %s | %s |\n",
			res.PR.Number,
			res.PR.URL,
			escapeCell(truncate(res.PR.Title, 50)),
			res.PR.Base.Ref,
			res.PR.User,
			status,
			label,
			markdownNumbers(res.ForwardPorts()),
		))
	}

	if f.Verbose {
		for _, res := range results {
			if len(res.Future) == 0 {
				continue
			}
			sb.WriteString(fmt.Sprintf("\n## #%d into `%s`\n\n", res.PR.Number, res.PR.Base.Ref))
			sb.WriteString(fmt.Sprintf("**New slices:** %s\n\n", codeList(res.Slices)))
			for _, fr := range res.Future {
				sb.WriteString(fmt.Sprintf("- `%s`: forward ports %s", fr.Release.Key(), markdownNumbers(fr.ForwardPorts)))
				if len(fr.Discontinued) > 0 {
					sb.WriteString(fmt.Sprintf("; discontinued %s", codeList(fr.Discontinued)))
				}
				sb.WriteString("\n")
			}
		}
	}

	return sb.String(), nil
}

func markdownNumbers(numbers []int) string {
	if len(numbers) == 0 {
		return "-"
	}
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = fmt.Sprintf("#%d", n)
	}
	return strings.Join(parts, ", ")
}

func codeList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return "`" + strings.Join(items, "`, `") + "`"
}

func escapeCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}
