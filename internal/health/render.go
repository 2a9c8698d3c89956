package health

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/pythia/internal/model"
)

var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
	colorWarn      = lipgloss.Color("214") // Orange
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(colorPrimary).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorHighlight).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Width(18)

	cellStyle = lipgloss.NewStyle().
			Width(8).
			Align(lipgloss.Right)

	goodStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	warnStyle = lipgloss.NewStyle().Foreground(colorWarn)
	barStyle  = lipgloss.NewStyle().Foreground(colorPrimary)
)

const barWidth = 30

// Render formats the summary for a terminal.
func Render(s Summary) string {
	sections := []string{
		titleStyle.Render(fmt.Sprintf("pythia health: last %d days (since %s)", s.Days, s.Since.Format("2006-01-02"))),
		renderSnippets(s),
		renderScores(s),
		renderUnevidenced(s),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func renderSnippets(s Summary) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Snippets (%d)", s.Snippets)))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("source"))
	for _, h := range []string{"tier 1", "tier 2", "tier 3", "total"} {
		b.WriteString(cellStyle.Render(h))
	}
	b.WriteString("\n")

	sources := s.Sources()
	if len(sources) == 0 {
		b.WriteString(warnStyle.Render("no snippets collected in window"))
		return b.String()
	}
	for i, st := range sources {
		row := s.BySource[st]
		b.WriteString(labelStyle.Render(string(st)))
		total := 0
		for _, t := range []model.Tier{model.TierEarned, model.TierEditorial, model.TierPromotional} {
			b.WriteString(cellStyle.Render(fmt.Sprint(row[t])))
			total += row[t]
		}
		b.WriteString(cellStyle.Render(fmt.Sprint(total)))
		if i < len(sources)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderScores(s Summary) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Scores (%d entities)", s.Scored)))
	b.WriteString("\n")
	if s.Scored == 0 {
		b.WriteString(warnStyle.Render("no scores computed in window"))
		return b.String()
	}

	fmt.Fprintf(&b, "%s%.1f\n", labelStyle.Render("mean pythia"), s.MeanPythia)
	conf := fmt.Sprintf("%.2f", s.MeanConfidence)
	if s.MeanConfidence < 0.3 {
		conf = warnStyle.Render(conf)
	} else {
		conf = goodStyle.Render(conf)
	}
	fmt.Fprintf(&b, "%s%s\n", labelStyle.Render("mean confidence"), conf)
	fmt.Fprintf(&b, "%s%d\n", labelStyle.Render("low confidence"), s.LowConfidence)

	peak := 0
	for _, band := range s.Bands {
		peak = max(peak, band.Count)
	}
	for i, band := range s.Bands {
		width := 0
		if peak > 0 {
			width = band.Count * barWidth / peak
		}
		label := labelStyle.Render(fmt.Sprintf("%3d-%-3d", band.Lo, band.Hi))
		fmt.Fprintf(&b, "%s%s %d", label, barStyle.Render(strings.Repeat("█", width)), band.Count)
		if i < len(s.Bands)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func renderUnevidenced(s Summary) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Entities without snippets (%d)", len(s.Unevidenced))))
	if len(s.Unevidenced) == 0 {
		b.WriteString("\n")
		b.WriteString(goodStyle.Render("every entity has evidence"))
		return b.String()
	}
	const show = 20
	for i, e := range s.Unevidenced {
		if i == show {
			fmt.Fprintf(&b, "\n  … and %d more", len(s.Unevidenced)-show)
			break
		}
		fmt.Fprintf(&b, "\n  %d  %s", e.ID, e.Name)
		if e.Domain != "" {
			b.WriteString(lipgloss.NewStyle().Foreground(colorSecondary).Render("  " + e.Domain))
		}
	}
	return b.String()
}
