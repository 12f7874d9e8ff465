package tui

import (
	"fmt"
	"strings"

	"docassist/internal/app"

	"github.com/muesli/reflow/truncate"
)

// renderUploadPanel shows per-file progress for the current submission.
// Empty when no upload has been started this session.
func (m *MainModel) renderUploadPanel(l layoutInfo) string {
	if m.batch == nil || l.UploadH == 0 {
		return ""
	}

	files := m.batch.Files()
	title := fmt.Sprintf("Documents (%d/%d)", m.batch.CompletedCount(), len(files))

	var b strings.Builder
	b.WriteString(m.theme.PaneTitle.Render(title))
	b.WriteString("\n")

	visible := l.UploadH - 2
	for i, f := range files {
		if i >= visible {
			break
		}
		b.WriteString(m.renderUploadRow(f, m.width-6))
		if i != len(files)-1 && i != visible-1 {
			b.WriteString("\n")
		}
	}
	return m.theme.Pane.Width(m.width - 2).Render(b.String())
}

func (m *MainModel) renderUploadRow(f app.UploadFile, width int) string {
	nameW := width / 3
	if nameW < 12 {
		nameW = 12
	}
	name := m.theme.UploadName.Render(
		fmt.Sprintf("%-*s", nameW, truncate.StringWithTail(f.Name, uint(nameW), "…")))

	switch f.Status {
	case app.FileError:
		reason := f.Error
		if reason == "" {
			reason = "failed"
		}
		return name + " " + m.theme.UploadErr.Render("✗ "+reason)
	case app.FileCompleted:
		return name + " " + m.theme.UploadOK.Render("✓ done")
	case app.FilePending:
		return name + " " + m.theme.UploadBusy.Render("queued")
	case app.FileUploading:
		return name + " " + m.theme.UploadBusy.Render("uploading…")
	default:
		barW := width - nameW - 8
		if barW < 10 {
			barW = 10
		}
		return name + " " + m.renderBar(f.Progress, barW) +
			m.theme.TopBarMeta.Render(fmt.Sprintf(" %3.0f%%", f.Progress))
	}
}

func (m *MainModel) renderBar(percent float64, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	return m.theme.UploadFill.Render(strings.Repeat("█", filled)) +
		m.theme.UploadTrack.Render(strings.Repeat("░", width-filled))
}
