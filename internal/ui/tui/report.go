package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bamsammich/burn/internal/stats"
	"github.com/bamsammich/burn/internal/ui"
)

type saveResultMsg struct {
	path string
	err  error
}

// pathPrompt is the one-line editor used to choose where the session report
// goes. It edits runes, so non-ASCII paths stay intact.
type pathPrompt struct {
	active bool
	value  []rune
	pos    int
}

func (p *pathPrompt) open(initial string) {
	p.active = true
	p.value = []rune(initial)
	p.pos = len(p.value)
}

func (p *pathPrompt) close() {
	p.active = false
}

func (p *pathPrompt) text() string {
	return string(p.value)
}

// edit applies an editing key. Keys it does not know are ignored.
func (p *pathPrompt) edit(msg tea.KeyMsg) {
	switch msg.Type {
	case tea.KeyBackspace:
		if p.pos > 0 {
			p.value = append(p.value[:p.pos-1], p.value[p.pos:]...)
			p.pos--
		}
	case tea.KeyDelete:
		if p.pos < len(p.value) {
			p.value = append(p.value[:p.pos], p.value[p.pos+1:]...)
		}
	case tea.KeyLeft:
		p.pos = max(p.pos-1, 0)
	case tea.KeyRight:
		p.pos = min(p.pos+1, len(p.value))
	case tea.KeyHome, tea.KeyCtrlA:
		p.pos = 0
	case tea.KeyEnd, tea.KeyCtrlE:
		p.pos = len(p.value)
	case tea.KeyCtrlU:
		p.value = append([]rune(nil), p.value[p.pos:]...)
		p.pos = 0
	case tea.KeySpace:
		p.insert(' ')
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			p.insert(r)
		}
	}
}

func (p *pathPrompt) insert(r rune) {
	p.value = append(p.value, 0)
	copy(p.value[p.pos+1:], p.value[p.pos:])
	p.value[p.pos] = r
	p.pos++
}

func (p *pathPrompt) render() string {
	before := string(p.value[:p.pos])
	after := string(p.value[p.pos:])
	return "  " + styleSavePrompt.Render("Save report to: ") +
		styleSaveInput.Render(before) + styleSaveInput.Render("█") + styleSaveInput.Render(after)
}

func defaultReportName(now time.Time) string {
	return "burn-" + now.Format("2006-01-02-150405") + ".log"
}

// saveReport writes the report off the UI goroutine. The snapshot and log
// are copied first.
func saveReport(path, image string, snap stats.Snapshot, log []logEntry) tea.Cmd {
	entries := append([]logEntry(nil), log...)
	return func() tea.Msg {
		err := os.WriteFile(path, []byte(buildReport(image, snap, entries)), 0o644) //nolint:gosec // user-chosen path for report output
		return saveResultMsg{path: path, err: err}
	}
}

func buildReport(image string, snap stats.Snapshot, log []logEntry) string {
	var b strings.Builder

	b.WriteString("burn session report\n")
	b.WriteString("===================\n")
	field := func(name, format string, args ...any) {
		fmt.Fprintf(&b, "%-12s "+format+"\n", append([]any{name + ":"}, args...)...)
	}
	field("image", "%s", image)
	field("size", "%s", ui.FormatBytes(snap.ImageSize))
	field("completed", "%s", time.Now().Format("2006-01-02 15:04:05"))
	field("duration", "%s", ui.FormatDuration(snap.Elapsed))
	field("devices", "%d of %d succeeded", snap.Succeeded, snap.Total())
	if snap.Err != nil {
		field("error", "%v", snap.Err)
	}

	b.WriteString("\n--- devices ---\n")
	for _, d := range snap.Devices {
		mark := "x"
		if d.Outcome == stats.Succeeded {
			mark = "v"
		}
		line := fmt.Sprintf("%s  %-16s  %-20s  %s", mark, d.Path, d.Label, d.Outcome)
		if d.Err != "" {
			line += "  " + d.Err
		}
		b.WriteString(strings.TrimRight(line, " ") + "\n")
	}

	b.WriteString("\n--- log ---\n")
	for _, e := range log {
		fmt.Fprintf(&b, "%s  %s  %s\n", e.at.Format(logTimeLayout), e.path, e.text)
	}
	return b.String()
}
