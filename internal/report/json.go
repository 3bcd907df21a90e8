package report

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/grokify/forwardport/internal/forwardport"
)

// JSONFormatter formats results as a JSON array, one record per PR.
type JSONFormatter struct {
	Indent bool

	// Verbose adds the PR's new slices and, per future release, the
	// discontinued slices and the comparisons with overlap or missing slices.
	Verbose bool
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{Indent: true}
}

type prRecord struct {
	Number        int              `json:"number"`
	Title         string           `json:"title"`
	URL           string           `json:"url"`
	Base          string           `json:"base"`
	Head          string           `json:"head"`
	ForwardPorted bool             `json:"forward_ported"`
	Label         bool             `json:"label"`
	ForwardPorts  map[string][]int `json:"forward_ports"`
}

type verbosePRRecord struct {
	prRecord
	Comparisons  map[string][]comparisonRecord `json:"comparisons"`
	Discontinued map[string][]string           `json:"discontinued"`
	Slices       []string                      `json:"slices"`
}

type comparisonRecord struct {
	Number  int      `json:"number"`
	Overlap []string `json:"overlap,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// Format formats results as JSON.
func (f *JSONFormatter) Format(results []forwardport.Result) (string, error) {
	records := make([]any, 0, len(results))

	for _, res := range results {
		rec := prRecord{
			Number:        res.PR.Number,
			Title:         res.PR.Title,
			URL:           res.PR.URL,
			Base:          res.PR.Base.Ref,
			Head:          res.PR.Head.Descriptor(),
			ForwardPorted: res.ForwardPorted,
			Label:         res.PR.Label,
			ForwardPorts:  make(map[string][]int, len(res.Future)),
		}
		for _, fr := range res.Future {
			rec.ForwardPorts[fr.Release.Key()] = fr.ForwardPorts
		}

		if !f.Verbose {
			records = append(records, rec)
			continue
		}

		vrec := verbosePRRecord{
			prRecord:     rec,
			Comparisons:  make(map[string][]comparisonRecord, len(res.Future)),
			Discontinued: make(map[string][]string, len(res.Future)),
			Slices:       res.Slices,
		}
		for _, fr := range res.Future {
			vrec.Discontinued[fr.Release.Key()] = fr.Discontinued
			vrec.Comparisons[fr.Release.Key()] = interestingComparisons(fr.Comparisons)
		}
		records = append(records, vrec)
	}

	return f.marshal(records)
}

// interestingComparisons keeps comparisons with overlapping or missing slices.
func interestingComparisons(comparisons []*forwardport.Comparison) []comparisonRecord {
	out := []comparisonRecord{}
	for _, c := range comparisons {
		overlap, missing := c.Overlap(), c.Missing()
		if overlap.Len() == 0 && missing.Len() == 0 {
			continue
		}

		rec := comparisonRecord{Number: c.Future.Number}
		if overlap.Len() > 0 {
			rec.Overlap = overlap.Sorted()
		}
		if missing.Len() > 0 {
			rec.Missing = missing.Sorted()
		}
		out = append(out, rec)
	}
	return out
}

func (f *JSONFormatter) marshal(v any) (string, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if f.Indent {
		enc.SetIndent("", "  ")
	}

	if err := enc.Encode(v); err != nil {
		return "", err
	}

	return strings.TrimSuffix(buf.String(), "\n"), nil
}
