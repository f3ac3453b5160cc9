package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/verbatim/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(12)
	goodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// RenderSummary prints a short boxed overview of results to w
func (r *Renderer) RenderSummary(w io.Writer, res *model.Results) {
	vs := res.VerificationSummary

	lines := []string{
		titleStyle.Render("Verification Summary"),
		row("Submission", res.SubmissionID),
		row("Status", statusStyle(res.Status).Render(string(res.Status))),
		row("F1", fmt.Sprintf("%d/%d verified (%s)", vs.F1Verified, vs.F1Total, rateStyle(vs.F1VerificationRate).Render(Percent(vs.F1VerificationRate)))),
		row("F2", fmt.Sprintf("%d/%d verified (%s)", vs.F2Verified, vs.F2Total, rateStyle(vs.F2VerificationRate).Render(Percent(vs.F2VerificationRate)))),
		row("Overall", rateStyle(vs.OverallVerificationRate).Render(Percent(vs.OverallVerificationRate))),
	}
	if res.ErrorMessage != nil {
		lines = append(lines, row("Error", badStyle.Render(*res.ErrorMessage)))
	}

	_, _ = fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n")))
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func statusStyle(s model.Status) lipgloss.Style {
	switch s {
	case model.StatusCompleted:
		return goodStyle
	case model.StatusFailed:
		return badStyle
	}
	return warnStyle
}

func rateStyle(rate float64) lipgloss.Style {
	switch {
	case rate >= 0.8:
		return goodStyle
	case rate >= 0.5:
		return warnStyle
	}
	return badStyle
}
