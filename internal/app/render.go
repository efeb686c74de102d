package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pmezard/go-difflib/difflib"

	"pgagent-yaml/internal/job"
	"pgagent-yaml/internal/reconcile"
	"pgagent-yaml/internal/serializer"
)

// planRenderer prints a plan as one unified YAML diff per job: the store
// side is "a", the files side is "b". Colors are dropped when out is not a
// terminal.
type planRenderer struct {
	out     io.Writer
	added   lipgloss.Style
	removed lipgloss.Style
	header  lipgloss.Style
	query   lipgloss.Style
}

func newPlanRenderer(out io.Writer) *planRenderer {
	r := lipgloss.NewRenderer(out)
	base := r.NewStyle().TabWidth(lipgloss.NoTabConversion)
	return &planRenderer{
		out:     out,
		added:   base.Foreground(lipgloss.Color("2")),
		removed: base.Foreground(lipgloss.Color("1")),
		header:  base.Foreground(lipgloss.Color("6")).Bold(true),
		query:   base.Foreground(lipgloss.Color("3")),
	}
}

func (r *planRenderer) render(plan *reconcile.Plan, opts serializer.Options) error {
	desired := byName(plan.Desired)
	actual := byName(plan.Actual)
	for _, name := range plan.Jobs() {
		diff, err := jobDiff(name, actual[name], desired[name], opts)
		if err != nil {
			return err
		}
		r.diff(diff)
	}
	return nil
}

func (r *planRenderer) diff(text string) {
	if text == "" {
		return
	}
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"), strings.HasPrefix(line, "@@"):
			line = r.header.Render(line)
		case strings.HasPrefix(line, "+"):
			line = r.added.Render(line)
		case strings.HasPrefix(line, "-"):
			line = r.removed.Render(line)
		}
		fmt.Fprintln(r.out, line)
	}
}

// echo prints a statement the store is about to execute.
func (r *planRenderer) echo(query string, args []any) {
	text := "QUERY: " + query
	if len(args) > 0 {
		text += fmt.Sprintf("\n  -- args: %v", args)
	}
	fmt.Fprintln(r.out, r.query.Render(text))
}

func byName(jobs []job.Job) map[string]*job.Job {
	m := make(map[string]*job.Job, len(jobs))
	for i := range jobs {
		m[jobs[i].Name] = &jobs[i]
	}
	return m
}

// jobDiff renders a unified diff of one job's text form. A nil side is an
// absent job.
func jobDiff(name string, actual, desired *job.Job, opts serializer.Options) (string, error) {
	a, err := jobText(actual, opts)
	if err != nil {
		return "", err
	}
	b, err := jobText(desired, opts)
	if err != nil {
		return "", err
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        lines(a),
		B:        lines(b),
		FromFile: "store/" + name,
		ToFile:   "files/" + name,
		Context:  3,
	})
}

func jobText(j *job.Job, opts serializer.Options) (string, error) {
	if j == nil {
		return "", nil
	}
	data, err := serializer.EncodeJob(*j, opts)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func lines(text string) []string {
	if text == "" {
		return nil
	}
	return difflib.SplitLines(strings.TrimSuffix(text, "\n"))
}
