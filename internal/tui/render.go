package tui

import (
	"fmt"
	"strings"

	"ai-quiz-service/internal/app"
	"ai-quiz-service/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

var (
	colorTitle   = lipgloss.Color("33")
	colorMuted   = lipgloss.Color("242")
	colorWarn    = lipgloss.Color("214")
	colorCorrect = lipgloss.Color("42")
	colorWrong   = lipgloss.Color("196")
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.loading {
		return m.spinner.View() + " " + loadingText(m.opts, m.status)
	}

	var body string
	switch m.view.Phase {
	case domain.PhaseActive:
		body = m.renderActive()
	case domain.PhaseSubmitted:
		body = m.renderSubmitted()
	default:
		body = stylize("No quiz in progress.", m.opts.NoColor, colorMuted)
	}
	parts := []string{body}
	if m.status != "" {
		parts = append(parts, stylize(m.status, m.opts.NoColor, colorWarn))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func loadingText(opts Options, status string) string {
	switch {
	case status != "":
		return status
	case opts.ResumeID != "":
		return "resuming quiz " + opts.ResumeID
	default:
		return "generating " + opts.Topic + " quiz"
	}
}

func (m Model) renderActive() string {
	v := m.view
	q := v.Question
	header := fmt.Sprintf("%s (%s) | Question %d/%d | Answered %d | %s left",
		v.Topic, v.Difficulty, v.QuestionIndex+1, v.TotalQuestions, v.Answered, formatSeconds(v.RemainingSeconds))
	timerColor := colorTitle
	if v.TimeWarning {
		timerColor = colorWarn
	}

	lines := []string{stylize(header, m.opts.NoColor, timerColor), "", q.Text}
	if q.MultiSelect {
		lines = append(lines, stylize("(select all that apply)", m.opts.NoColor, colorMuted))
	}
	for i, option := range q.Options {
		pointer := "  "
		if i == m.cursor {
			pointer = "> "
		}
		box := "[ ]"
		if contains(q.Selected, option) {
			box = "[x]"
		}
		lines = append(lines, pointer+box+" "+option)
	}
	lines = append(lines, "", stylize("up/down move | space select | left/right navigate | s submit | x save & exit | q quit", m.opts.NoColor, colorMuted))
	return strings.Join(lines, "\n")
}

func (m Model) renderSubmitted() string {
	r := m.view.Result
	if r == nil {
		return ""
	}
	lines := []string{
		stylize(fmt.Sprintf("%s  %.2f/%d (%.1f%%) in %s", r.Message(), r.Score, r.TotalQuestions, r.Percentage, formatSeconds(r.ElapsedSeconds)), m.opts.NoColor, colorTitle),
		"",
	}
	for _, q := range m.view.Review {
		lines = append(lines, renderReview(q, m.opts.NoColor))
	}
	lines = append(lines, stylize("q quit", m.opts.NoColor, colorMuted))
	return strings.Join(lines, "\n")
}

func renderReview(q app.QuestionView, noColor bool) string {
	score := 0.0
	if q.Score != nil {
		score = *q.Score
	}
	color := colorWrong
	if score >= 1 {
		color = colorCorrect
	}
	selected := strings.Join(q.Selected, ", ")
	if selected == "" {
		selected = "-"
	}
	return stylize(fmt.Sprintf("%d. %s (%.2f)", q.Index+1, q.Text, score), noColor, color) + "\n" +
		"   your answer: " + selected + "\n" +
		"   correct: " + strings.Join(q.CorrectAnswers, ", ") + "\n" +
		"   " + q.Explanation + "\n"
}

func formatSeconds(total int) string {
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// stylize applies optional color styling.
func stylize(text string, noColor bool, color lipgloss.Color) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}
