package report

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/grokify/forwardport/internal/forwardport"
)

// CSVFormatter formats results as CSV.
type CSVFormatter struct{}

// NewCSVFormatter creates a new CSV formatter.
func NewCSVFormatter() *CSVFormatter {
	return &CSVFormatter{}
}

// Format formats results as CSV, one row per PR.
func (f *CSVFormatter) Format(results []forwardport.Result) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"Number", "Forward Ported", "Label", "Base", "Head", "User", "Title", "Forward Ports", "URL"}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for _, res := range results {
		ports := make([]string, 0)
		for _, n := range res.ForwardPorts() {
			ports = append(ports, strconv.Itoa(n))
		}

		row := []string{
			strconv.Itoa(res.PR.Number),
			strconv.FormatBool(res.ForwardPorted),
			strconv.FormatBool(res.PR.Label),
			res.PR.Base.Ref,
			res.PR.Head.Descriptor(),
			res.PR.User,
			res.PR.Title,
			strings.Join(ports, " "),
			res.PR.URL,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return buf.String(), nil
}
