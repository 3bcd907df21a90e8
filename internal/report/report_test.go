package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/grokify/forwardport/internal/forwardport"
	"github.com/grokify/forwardport/internal/sliceset"
	"github.com/grokify/forwardport/pkg/model"
)

var (
	focal = model.MustRelease("20.04", "focal")
	jammy = model.MustRelease("22.04", "jammy")
)

func testPR(t *testing.T, number int, rel model.Release, title, user string) model.PullRequest {
	t.Helper()

	pr := model.PullRequest{
		Number: number,
		Title:  title,
		User:   user,
		Head: model.Commit{
			Ref:       fmt.Sprintf("feature-%d", number),
			RepoName:  "chisel-releases",
			RepoOwner: user,
			RepoURL:   "https://github.com/" + user + "/chisel-releases",
			SHA:       "1111",
		},
		Base: model.Commit{
			Ref:       rel.Key(),
			RepoName:  "chisel-releases",
			RepoOwner: "canonical",
			RepoURL:   "https://github.com/canonical/chisel-releases",
			SHA:       "2222",
		},
		URL: fmt.Sprintf("https://github.com/canonical/chisel-releases/pull/%d", number),
	}

	pr, err := pr.WithRelease(rel)
	if err != nil {
		t.Fatalf("WithRelease failed: %v", err)
	}
	return pr
}

// testResults: #1 (20.04) is forward-ported by #2 (22.04) but not by #3.
func testResults(t *testing.T) []forwardport.Result {
	t.Helper()

	pr1 := testPR(t, 1, focal, "Add foo", "octocat")
	pr2 := testPR(t, 2, jammy, "Add foo to jammy", "octocat")
	pr3 := testPR(t, 3, jammy, "Add bar", "hubot")
	pr3.Label = true

	in := forwardport.Input{
		Releases:     []model.Release{focal, jammy},
		PullRequests: []model.PullRequest{pr3, pr1, pr2},
		SlicesInHead: map[model.PullRequest]sliceset.Set{
			pr1: sliceset.New("foo_bins", "gone_bins"),
			pr2: sliceset.New("foo_bins"),
			pr3: sliceset.New("bar_bins", "foo_libs"),
		},
		SlicesInBase: map[model.PullRequest]sliceset.Set{
			pr1: sliceset.New(),
			pr2: sliceset.New(),
			pr3: sliceset.New("foo_libs"),
		},
		PackagesByRelease: map[model.Release]sliceset.Set{
			jammy: sliceset.New("foo", "bar"),
		},
	}

	a, err := forwardport.Analyze(in)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	return a.Results()
}

func TestTextFormatter(t *testing.T) {
	out, err := NewTextFormatter().Format(testResults(t))
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), out)
	}

	want := "1   " + "  " + "1" + "  " + "0" + "  " + "ubuntu-20.04 " + "  " +
		"octocat" + strings.Repeat(" ", 8) + "  " + "Add_foo" + strings.Repeat(" ", 33) + "  " + "2"
	if lines[0] != want {
		t.Errorf("unexpected row\n got: %q\nwant: %q", lines[0], want)
	}

	if !strings.HasPrefix(lines[2], "3     1  1  ubuntu-22.04") {
		t.Errorf("unexpected row for #3: %q", lines[2])
	}
	if !strings.HasSuffix(lines[2], "  -1") {
		t.Errorf("expected -1 for PR without forward ports: %q", lines[2])
	}
}

func TestTextFormatter_Empty(t *testing.T) {
	out, err := NewTextFormatter().Format(nil)
	if err != nil {
		t.Fatal(err)
	}
	if out != "" {
		t.Errorf("expected empty output, got %q", out)
	}
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Add foo", "Add_foo"},
		{"Héllo wörld\n", "H?llo_w?rld_"},
		{"tab\there", "tab?here"},
		{strings.Repeat("x", 40), strings.Repeat("x", 40)},
		{strings.Repeat("x", 41), strings.Repeat("x", 37) + "..."},
		{"ünïcödé " + strings.Repeat("y", 40), "?n?c?d?_" + strings.Repeat("y", 29) + "..."},
	}

	for _, tt := range tests {
		if got := sanitizeTitle(tt.input); got != tt.want {
			t.Errorf("sanitizeTitle(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSanitizeUser(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"octocat", "octocat"},
		{"dependabot[bot]", "dependabot[bot]"},
		{"a very long user name", "a_very_long_..."},
		{"jörg", "j?rg"},
		{"bot\tname", "bot?name"},
		{"ユーザー名", "?????"},
	}

	for _, tt := range tests {
		if got := sanitizeUser(tt.input); got != tt.want {
			t.Errorf("sanitizeUser(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestJSONFormatter(t *testing.T) {
	out, err := NewJSONFormatter().Format(testResults(t))
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	if !strings.HasPrefix(out, "[\n  {\n    \"number\": 1,") {
		t.Errorf("expected 2-space indented array, got:\n%s", out)
	}

	var records []map[string]any
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	r1 := records[0]
	if r1["base"] != "ubuntu-20.04" || r1["head"] != "octocat/chisel-releases/feature-1" {
		t.Errorf("unexpected base/head: %v / %v", r1["base"], r1["head"])
	}
	if r1["forward_ported"] != true || r1["label"] != false {
		t.Errorf("unexpected status: %v", r1)
	}
	ports, ok := r1["forward_ports"].(map[string]any)
	if !ok {
		t.Fatalf("forward_ports missing: %v", r1)
	}
	if fmt.Sprint(ports["ubuntu-22.04"]) != "[2]" {
		t.Errorf("unexpected forward ports %v", ports)
	}
	if _, ok := r1["comparisons"]; ok {
		t.Error("comparisons must only be present in verbose mode")
	}

	// latest release PRs have no future releases but still an object
	if fmt.Sprint(records[2]["forward_ports"]) != "map[]" {
		t.Errorf("expected empty forward_ports, got %v", records[2]["forward_ports"])
	}
}

func TestJSONFormatter_Verbose(t *testing.T) {
	f := NewJSONFormatter()
	f.Verbose = true

	out, err := f.Format(testResults(t))
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	var records []struct {
		Number       int                           `json:"number"`
		Slices       []string                      `json:"slices"`
		Discontinued map[string][]string           `json:"discontinued"`
		Comparisons  map[string][]comparisonRecord `json:"comparisons"`
	}
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	r1 := records[0]
	if strings.Join(r1.Slices, ",") != "foo_bins,gone_bins" {
		t.Errorf("unexpected slices %v", r1.Slices)
	}
	if strings.Join(r1.Discontinued["ubuntu-22.04"], ",") != "gone_bins" {
		t.Errorf("unexpected discontinued %v", r1.Discontinued)
	}

	cmps := r1.Comparisons["ubuntu-22.04"]
	if len(cmps) != 2 {
		t.Fatalf("expected 2 comparisons, got %v", cmps)
	}
	if cmps[0].Number != 2 || strings.Join(cmps[0].Overlap, ",") != "foo_bins" || len(cmps[0].Missing) != 0 {
		t.Errorf("unexpected comparison with #2: %+v", cmps[0])
	}
	if cmps[1].Number != 3 || len(cmps[1].Overlap) != 0 || strings.Join(cmps[1].Missing, ",") != "foo_bins" {
		t.Errorf("unexpected comparison with #3: %+v", cmps[1])
	}
}

func TestMarkdownFormatter(t *testing.T) {
	f := NewMarkdownFormatter()
	f.Verbose = true

	out, err := f.Format(testResults(t))
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	for _, want := range []string{
		"**Open PRs:** 3 | **Missing forward ports:** 0",
		"| [#1](https://github.com/canonical/chisel-releases/pull/1) Add foo | `ubuntu-20.04` | @octocat | ✅ |  | #2 |",
		"`forward port missing`",
		"- `ubuntu-22.04`: forward ports #2; discontinued `gone_bins`",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestCSVFormatter(t *testing.T) {
	out, err := NewCSVFormatter().Format(testResults(t))
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header and 3 rows, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[1], "1,true,false,ubuntu-20.04,octocat/chisel-releases/feature-1,octocat,Add foo,2,") {
		t.Errorf("unexpected row %q", lines[1])
	}
}

func TestNew(t *testing.T) {
	for _, format := range Formats {
		if _, err := New(format, false); err != nil {
			t.Errorf("New(%q) failed: %v", format, err)
		}
	}
	if _, err := New("yaml", false); err == nil {
		t.Error("expected error for unsupported format")
	}
}
