package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/user/intervoice/internal/types"
	"github.com/user/intervoice/internal/vapi"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
	goodStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)
	fairStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)
	poorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

func scoreStyle(score int) lipgloss.Style {
	switch {
	case score >= 75:
		return goodStyle
	case score >= 50:
		return fairStyle
	}
	return poorStyle
}

// renderFeedback formats a record for the terminal.
func renderFeedback(rec *types.FeedbackRecord) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Interview feedback"))
	b.WriteString("  ")
	b.WriteString(scoreStyle(rec.TotalScore).Render(fmt.Sprintf("%d/100", rec.TotalScore)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("interview %s  user %s  id %s  %s",
		rec.InterviewID, rec.UserID, rec.ID, rec.CreatedAt.Format("2006-01-02 15:04"))))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render("Breakdown"))
	b.WriteString("\n")
	for _, c := range rec.CategoryScores {
		fmt.Fprintf(&b, "  %-24s %s\n", c.Name, scoreStyle(c.Score).Render(fmt.Sprintf("%3d", c.Score)))
		if c.Comment != "" {
			fmt.Fprintf(&b, "  %s\n", dimStyle.Render(c.Comment))
		}
	}
	writeList(&b, "Strengths", rec.Strengths)
	writeList(&b, "Areas for improvement", rec.AreasForImprovement)
	if rec.FinalAssessment != "" {
		b.WriteString("\n")
		b.WriteString(boxStyle.Render(rec.FinalAssessment))
		b.WriteString("\n")
	}
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(title))
	b.WriteString("\n")
	for _, item := range items {
		fmt.Fprintf(b, "  - %s\n", item)
	}
}

// renderAttempts lists negotiation attempts in submission order.
func renderAttempts(attempts []vapi.Attempt) string {
	var b strings.Builder
	for i, a := range attempts {
		style := poorStyle
		if a.Status >= 200 && a.Status < 300 {
			style = goodStyle
		}
		status := fmt.Sprintf("%d", a.Status)
		if a.Status == vapi.StatusTransportError {
			status = "transport error"
		}
		fmt.Fprintf(&b, "%2d. %-20s %s\n", i+1, a.Name, style.Render(status))
		if a.Body != nil && (a.Status < 200 || a.Status >= 300) {
			fmt.Fprintf(&b, "    %s\n", dimStyle.Render(fmt.Sprint(a.Body)))
		}
	}
	return b.String()
}
