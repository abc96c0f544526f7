// Package render formats simulation results and workflow validation reports
// as terminal text.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AbdelazizMoustafa10m/actionsim/internal/simulate"
	"github.com/AbdelazizMoustafa10m/actionsim/internal/workflow"
)

// Formatter renders RuntimeModels and validation reports. When styled is
// true lipgloss styling is applied; otherwise plain text is emitted.
type Formatter struct {
	writer io.Writer
	styled bool
}

// NewFormatter creates a Formatter writing to w.
func NewFormatter(w io.Writer, styled bool) *Formatter {
	return &Formatter{writer: w, styled: styled}
}

// Write writes s to the formatter's writer.
func (f *Formatter) Write(s string) {
	fmt.Fprint(f.writer, s)
}

type styles struct {
	header, job, faint lipgloss.Style
	status             map[simulate.Status]lipgloss.Style
	errLabel, warnLbl  lipgloss.Style
}

func (f *Formatter) styles() styles {
	s := styles{
		header:   lipgloss.NewStyle(),
		job:      lipgloss.NewStyle(),
		faint:    lipgloss.NewStyle(),
		errLabel: lipgloss.NewStyle(),
		warnLbl:  lipgloss.NewStyle(),
		status: map[simulate.Status]lipgloss.Style{
			simulate.StatusWillRun:   lipgloss.NewStyle(),
			simulate.StatusSkipped:   lipgloss.NewStyle(),
			simulate.StatusWouldFail: lipgloss.NewStyle(),
		},
	}
	if !f.styled {
		return s
	}
	s.header = s.header.Bold(true).Foreground(lipgloss.Color("12")) // bright blue
	s.job = s.job.Bold(true)
	s.faint = s.faint.Faint(true)
	s.errLabel = s.errLabel.Bold(true).Foreground(lipgloss.Color("9"))
	s.warnLbl = s.warnLbl.Bold(true).Foreground(lipgloss.Color("11"))
	s.status[simulate.StatusWillRun] = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	s.status[simulate.StatusSkipped] = lipgloss.NewStyle().Faint(true)
	s.status[simulate.StatusWouldFail] = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	return s
}

// statusWidth is the column width of step status labels.
const statusWidth = len("would fail")

// StatusLabel returns the display form of a status, e.g. "would fail".
func StatusLabel(s simulate.Status) string {
	return strings.ReplaceAll(string(s), "_", " ")
}

// FormatModel returns the text form of m. title names the workflow; it may
// be empty. When digest is set the model digest is appended.
func (f *Formatter) FormatModel(title string, m *simulate.RuntimeModel, digest bool) string {
	st := f.styles()
	var sb strings.Builder

	header := "Simulation: " + m.Event.String()
	if title != "" {
		header = title + " | " + header
	}
	sb.WriteString(st.header.Render(header))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", lipgloss.Width(header)))
	sb.WriteString("\n\n")

	if !m.Triggered() {
		sb.WriteString("Not triggered: ")
		sb.WriteString(m.Trigger.String())
		sb.WriteString("\n")
		if digest {
			fmt.Fprintf(&sb, "\ndigest: %s\n", m.Digest())
		}
		return sb.String()
	}
	fmt.Fprintf(&sb, "%s\n\n", st.faint.Render("Trigger: "+m.Trigger.String()))

	for i, j := range m.Jobs {
		label := st.status[j.Status].Render(StatusLabel(j.Status))
		name := j.ID
		if j.Name != j.ID {
			name = fmt.Sprintf("%s (%s)", j.ID, j.Name)
		}
		fmt.Fprintf(&sb, "  %d. %s  [%s]\n", i+1, st.job.Render(name), label)
		if len(j.Needs) > 0 {
			fmt.Fprintf(&sb, "       %s\n", st.faint.Render("needs: "+strings.Join(j.Needs, ", ")))
		}
		if j.Outputs != nil && j.Outputs.Len() > 0 {
			data, err := j.Outputs.MarshalJSON()
			if err == nil {
				fmt.Fprintf(&sb, "       %s\n", st.faint.Render("outputs: "+string(data)))
			}
		}
		for _, s := range j.Steps {
			raw := StatusLabel(s.Status)
			pad := strings.Repeat(" ", max(0, statusWidth-len(raw)))
			fmt.Fprintf(&sb, "       %s%s %s\n", st.status[s.Status].Render(raw), pad, s.Name)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "%d job(s): %d will run, %d skipped, %d would fail\n",
		len(m.Jobs), m.Count(simulate.StatusWillRun), m.Count(simulate.StatusSkipped), m.Count(simulate.StatusWouldFail))
	if digest {
		fmt.Fprintf(&sb, "digest: %s\n", m.Digest())
	}
	return sb.String()
}

// FormatValidation returns a report of the issues in r. path names the
// checked file.
func (f *Formatter) FormatValidation(path string, r *workflow.ValidationResult) string {
	st := f.styles()
	var sb strings.Builder

	if len(r.Errors) == 0 && len(r.Warnings) == 0 {
		fmt.Fprintf(&sb, "%s: %s\n", path, st.status[simulate.StatusWillRun].Render("valid"))
		return sb.String()
	}

	write := func(label lipgloss.Style, name string, issues []workflow.ValidationIssue) {
		if len(issues) == 0 {
			return
		}
		sb.WriteString(label.Render(name + ":"))
		sb.WriteString("\n")
		for _, issue := range issues {
			loc := path
			if issue.Pos.Line > 0 {
				loc = fmt.Sprintf("%s:%d:%d", path, issue.Pos.Line, issue.Pos.Column)
			}
			if issue.Path != "" {
				fmt.Fprintf(&sb, "  %s [%s] %s: %s\n", loc, issue.Code, issue.Path, issue.Message)
			} else {
				fmt.Fprintf(&sb, "  %s [%s] %s\n", loc, issue.Code, issue.Message)
			}
		}
		sb.WriteString("\n")
	}
	write(st.errLabel, "Errors", r.Errors)
	write(st.warnLbl, "Warnings", r.Warnings)
	fmt.Fprintf(&sb, "%d error(s), %d warning(s)\n", len(r.Errors), len(r.Warnings))
	return sb.String()
}
