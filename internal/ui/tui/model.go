package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bamsammich/burn/internal/event"
	"github.com/bamsammich/burn/internal/stats"
	"github.com/bamsammich/burn/internal/ui"
)

type viewMode int

const (
	viewDevices viewMode = iota
	viewRate
	viewCount
)

// Bubble Tea messages.
type engineEventMsg event.Event
type channelDoneMsg struct{}
type tickMsg time.Time

// readNextEvent returns a tea.Cmd that blocks on the event channel. The
// event is applied to the collector here, so it still counts if the
// program quits before the message is delivered.
func readNextEvent(ch <-chan event.Event, collector *stats.Collector) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return channelDoneMsg{}
		}
		collector.Apply(ev)
		return engineEventMsg(ev)
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model is the root Bubble Tea model.
type Model struct {
	events <-chan event.Event
	stats  *stats.Collector
	image  string

	mode      viewMode
	devices   devicesView
	prompt    pathPrompt
	width     int
	height    int
	statusMsg string // transient notification
	done      bool   // event stream closed
	quitting  bool

	lastSnap stats.Snapshot
}

// NewModel creates a new TUI model.
func NewModel(events <-chan event.Event, collector *stats.Collector, image string) Model {
	return Model{
		events:  events,
		stats:   collector,
		image:   image,
		devices: newDevicesView(),
		width:   80,
		height:  24,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(readNextEvent(m.events, m.stats), tickCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.prompt.active {
			return m.handlePromptKey(msg)
		}
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case engineEventMsg:
		m.devices.handleEvent(event.Event(msg))
		m.lastSnap = m.stats.Snapshot()
		return m, readNextEvent(m.events, m.stats)

	case channelDoneMsg:
		m.done = true
		m.lastSnap = m.stats.Snapshot()

	case tickMsg:
		m.stats.Tick()
		m.lastSnap = m.stats.Snapshot()
		return m, tickCmd()

	case saveResultMsg:
		m.prompt.close()
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("save failed: %v", msg.err)
		} else {
			m.statusMsg = "saved to " + msg.path
		}
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "tab":
		m.mode = (m.mode + 1) % viewCount
	case "d":
		m.mode = viewDevices
	case "r":
		m.mode = viewRate
	case "s":
		if !m.done {
			m.statusMsg = "save is available once the session is done"
			return m, nil
		}
		m.prompt.open(defaultReportName(time.Now()))
	default:
		if m.mode == viewDevices {
			m.devices.navigate(key, len(m.lastSnap.Devices))
		}
		return m, nil
	}
	m.statusMsg = ""
	return m, nil
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEscape, tea.KeyCtrlC:
		m.prompt.close()
		m.statusMsg = ""
		return m, nil
	case tea.KeyEnter:
		path := strings.TrimSpace(m.prompt.text())
		if path == "" {
			return m, nil
		}
		return m, saveReport(path, m.image, m.lastSnap, m.devices.log)
	default:
		m.prompt.edit(msg)
		return m, nil
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	// Header, status and footer take one line each.
	contentHeight := max(m.height-3, 3)

	var content string
	switch m.mode {
	case viewRate:
		content = renderRate(m.width, contentHeight, m.lastSnap, m.stats)
	default:
		content = m.devices.view(m.width, contentHeight, m.lastSnap, m.stats)
	}

	return m.renderHeader() + "\n" + content + m.statusLine() + "\n" + m.renderFooter()
}

func (m Model) statusLine() string {
	switch {
	case m.prompt.active:
		return m.prompt.render()
	case m.statusMsg != "":
		return styleStatus.Render("  " + m.statusMsg)
	default:
		return ""
	}
}

func (m Model) renderHeader() string {
	snap := m.lastSnap
	parts := []string{styleHeaderLabel.Render("burn")}

	if m.done {
		icon := styleIconDone.Render("done")
		if snap.Failed > 0 || snap.Mismatched > 0 || snap.Err != nil {
			icon = styleIconFailed.Render("done")
		}
		parts = append(parts,
			icon,
			filepath.Base(m.image),
			fmt.Sprintf("%d of %d devices succeeded", snap.Succeeded, snap.Total()),
			ui.FormatDuration(snap.Elapsed),
		)
	} else {
		parts = append(parts,
			filepath.Base(m.image),
			ui.FormatBytes(snap.ImageSize),
			fmt.Sprintf("%d / %d active", snap.Active, snap.Total()),
			ui.FormatRate(m.stats.TotalSpeed()),
			ui.FormatDuration(snap.Elapsed),
		)
	}
	return styleHeader.Render("  " + strings.Join(parts, "  "))
}

type keyHint struct {
	key   string
	label string
}

func (m Model) hints() []keyHint {
	other := keyHint{"r", "rate"}
	if m.mode == viewRate {
		other = keyHint{"d", "devices"}
	}
	if !m.done {
		return []keyHint{{"q", "abort"}, other, {"j/k", "select"}}
	}
	return []keyHint{{"s", "save"}, {"j/k", "select"}, other, {"q", "quit"}}
}

func (m Model) renderFooter() string {
	parts := make([]string, 0, 4)
	for _, h := range m.hints() {
		parts = append(parts, styleKeybindKey.Render(h.key)+" "+styleKeybindLabel.Render(h.label))
	}
	return "  " + strings.Join(parts, "   ")
}
