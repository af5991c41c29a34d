package tui

import (
	"fmt"
	"strings"
	"time"
)

func renderView(m Model) string {
	var b strings.Builder

	renderHeader(&b, m)
	renderProgressBar(&b, m)
	renderSteps(&b, m)

	if len(m.Warnings) > 0 {
		b.WriteString("\n" + warningStyle.Render("Warnings") + "\n")
		for _, w := range m.Warnings {
			b.WriteString("  " + warningStyle.Render(warnMark) + " " + w + "\n")
		}
	}
	if m.Remedy != "" {
		b.WriteString("\n" + dimStyle.Render(m.Remedy) + "\n")
	}

	renderFooter(&b, m)
	return b.String()
}

func renderHeader(b *strings.Builder, m Model) {
	b.WriteString(titleStyle.Render("hostup: " + m.App))
	b.WriteString(subtitleStyle.Render(" → " + m.Domain))

	status := " "
	switch {
	case m.Err != nil:
		status += failedStyle.Render("Failed")
	case m.Done:
		status += readyStyle.Render("Installed")
	default:
		status += activeStyle.Render(currentSpinner(m.SpinnerFrame) + " installing")
	}
	b.WriteString(status + "\n\n")
}

func renderProgressBar(b *strings.Builder, m Model) {
	progress := calculateProgress(m)
	barWidth := 40
	if m.Width > 0 && m.Width < 80 {
		barWidth = max(m.Width-30, 10)
	}
	filled := min(int(float64(barWidth)*progress), barWidth)

	bar := progressBarFull.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", barWidth-filled))
	fmt.Fprintf(b, "  %s %3.0f%%\n\n", bar, progress*100)
}

func renderSteps(b *strings.Builder, m Model) {
	for _, s := range m.Steps {
		var icon, name string
		switch s.Status {
		case statusDone:
			icon, name = readyStyle.Render(checkMark), s.Name
		case statusWarned:
			icon, name = warningStyle.Render(warnMark), s.Name
		case statusFailed:
			icon, name = failedStyle.Render(crossMark), failedStyle.Render(s.Name)
		case statusActive:
			icon, name = activeStyle.Render(currentSpinner(m.SpinnerFrame)), activeStyle.Render(s.Name)
		default:
			icon, name = dimStyle.Render(pending), dimStyle.Render(s.Name)
		}
		line := fmt.Sprintf("  %s %s", icon, name)
		if s.Outcome != "" {
			line += " " + dimStyle.Render(s.Outcome)
		}
		b.WriteString(line + "\n")
		if s.Status == statusActive || s.Status == statusFailed {
			for _, l := range s.Lines {
				b.WriteString("      " + dimStyle.Render(l) + "\n")
			}
		}
	}
}

func renderFooter(b *strings.Builder, m Model) {
	elapsed := formatDuration(time.Since(m.StartTime))
	b.WriteString(footerStyle.Render(fmt.Sprintf("  elapsed: %s  |  q: quit", elapsed)))
	b.WriteString("\n")
}

func calculateProgress(m Model) float64 {
	if m.Done {
		return 1
	}
	if len(m.Steps) == 0 {
		return 0
	}
	finished := 0
	for _, s := range m.Steps {
		if s.Status == statusDone || s.Status == statusWarned {
			finished++
		}
	}
	return float64(finished) / float64(len(m.Steps))
}

func currentSpinner(frame int) string {
	if frame < 0 {
		frame = -frame
	}
	return spinnerFrames[frame%len(spinnerFrames)]
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
