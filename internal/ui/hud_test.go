package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/burn/internal/stats"
)

func runHUD(t *testing.T, evs ...Event) (*hudPresenter, string) {
	t.Helper()
	var out bytes.Buffer
	p := &hudPresenter{w: &out, stats: stats.NewCollector()}

	events := make(chan Event, len(evs))
	for _, ev := range evs {
		events <- ev
	}
	close(events)

	require.NoError(t, p.Run(events))
	return p, out.String()
}

func TestHudPresenterDeviceSucceeded(t *testing.T) {
	_, output := runHUD(t,
		Event{Type: SessionStarted, Size: 10240, Total: 1},
		Event{Type: DeviceAdded, Path: "/dev/sdb", Label: "SanDisk Cruzer"},
		Event{Type: DeviceProgress, Path: "/dev/sdb", Size: 10240},
		Event{Type: DeviceMessage, Path: "/dev/sdb", Kind: "F"},
		Event{Type: DeviceFinished, Path: "/dev/sdb"},
	)

	// Should contain the checkmark, device path and label.
	assert.Contains(t, output, "✓")
	assert.Contains(t, output, "/dev/sdb")
	assert.Contains(t, output, "SanDisk Cruzer")
}

func TestHudPresenterDeviceError(t *testing.T) {
	_, output := runHUD(t,
		Event{Type: SessionStarted, Size: 10240, Total: 2},
		Event{Type: DeviceAdded, Path: "/dev/sdb"},
		Event{Type: DeviceAdded, Path: "/dev/sdc"},
		Event{Type: DeviceMessage, Path: "/dev/sdc", Kind: "E", Text: "error writing disk '/dev/sdc': input/output error"},
		Event{Type: DeviceFinished, Path: "/dev/sdc"},
	)

	assert.Contains(t, output, "✗")
	assert.Contains(t, output, "input/output error")
	// A failed device gets no checkmark line.
	assert.NotContains(t, output, "✓")
}

func TestHudPresenterVerifyStarted(t *testing.T) {
	_, output := runHUD(t,
		Event{Type: SessionStarted, Size: 10240, Total: 1},
		Event{Type: DeviceAdded, Path: "/dev/sdb"},
		Event{Type: DeviceMessage, Path: "/dev/sdb", Kind: "S"},
		Event{Type: DeviceMessage, Path: "/dev/sdb", Kind: "V"},
	)

	assert.Contains(t, output, "verifying")
}

func TestHudPresenterAppliesEvents(t *testing.T) {
	p, _ := runHUD(t,
		Event{Type: SessionStarted, Size: 4096, Total: 1},
		Event{Type: DeviceAdded, Path: "/dev/sdb"},
		Event{Type: DeviceProgress, Path: "/dev/sdb", Size: 2048},
	)

	snap := p.stats.Snapshot()
	assert.Equal(t, int64(4096), snap.ImageSize)
	require.Len(t, snap.Devices, 1)
	assert.Equal(t, int64(2048), snap.Devices[0].Written)
}

func TestHudPresenterSummary(t *testing.T) {
	p, _ := runHUD(t,
		Event{Type: SessionStarted, Size: 1024 * 1024, Total: 2},
		Event{Type: DeviceFinished, Path: "/dev/sdb"},
		Event{Type: DeviceMessage, Path: "/dev/sdc", Kind: "E", Text: "writing to the device was killed"},
		Event{Type: DeviceFinished, Path: "/dev/sdc"},
	)

	s := p.Summary()
	assert.Contains(t, s, "done ✗")
	assert.Contains(t, s, "1 of 2 devices succeeded")
	assert.Contains(t, s, "/dev/sdc  writing to the device was killed")
}

func TestTruncPath(t *testing.T) {
	assert.Equal(t, "/dev/sdb", truncPath("/dev/sdb", 20))
	assert.Equal(t, ".../usb-Kingston", truncPath("/dev/disk/by-id/usb-Kingston", 16))
	assert.Equal(t, "ab", truncPath("abcdef", 2))
}

func TestStyledPath(t *testing.T) {
	p := &hudPresenter{}
	assert.Equal(t, ansiBold+"/dev/sdb"+ansiReset, p.styledPath("/dev/sdb"))
}

func TestHudNoDevicesDrawsNothing(t *testing.T) {
	var out bytes.Buffer
	p := &hudPresenter{w: &out, stats: stats.NewCollector()}

	p.drawHUD()
	assert.False(t, p.hudDrawn)
	assert.Empty(t, out.String())
}

func TestHudClearHUDSequence(t *testing.T) {
	var out bytes.Buffer
	collector := stats.NewCollector()
	collector.Apply(Event{Type: SessionStarted, Size: 4096, Total: 2})
	collector.Apply(Event{Type: DeviceAdded, Path: "/dev/sdb"})
	collector.Apply(Event{Type: DeviceAdded, Path: "/dev/sdc"})
	p := &hudPresenter{w: &out, stats: collector}

	// Draw HUD then clear it.
	p.drawHUD()
	assert.True(t, p.hudDrawn)
	assert.Equal(t, 3, p.hudLineCount) // header + one line per device

	out.Reset()
	p.clearHUD()
	// Should move up 3 lines.
	assert.Contains(t, out.String(), "\033[3A")
	assert.False(t, p.hudDrawn)
}

func TestHudDeviceLines(t *testing.T) {
	var out bytes.Buffer
	collector := stats.NewCollector()
	collector.Apply(Event{Type: SessionStarted, Size: 1000, Total: 3})
	collector.Apply(Event{Type: DeviceProgress, Path: "/dev/sdb", Size: 500})
	collector.Apply(Event{Type: DeviceFinished, Path: "/dev/sdc"})
	collector.Apply(Event{Type: DeviceMessage, Path: "/dev/sdd", Kind: "E", Text: "boom"})
	collector.Apply(Event{Type: DeviceFinished, Path: "/dev/sdd"})
	p := &hudPresenter{w: &out, stats: collector}

	p.drawHUD()
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "2 / 3 devices done")
	assert.Contains(t, lines[1], " 50%")
	assert.Contains(t, lines[1], "writing")
	assert.Contains(t, lines[2], "done")
	assert.Contains(t, lines[3], "failed")
}

func TestHudAlwaysRedrawsAfterFeedLine(t *testing.T) {
	_, output := runHUD(t,
		Event{Type: SessionStarted, Size: 10240, Total: 2},
		Event{Type: DeviceAdded, Path: "/dev/sdb"},
		Event{Type: DeviceAdded, Path: "/dev/sdc"},
		Event{Type: DeviceMessage, Path: "/dev/sdb", Kind: "E", Text: "first"},
		Event{Type: DeviceMessage, Path: "/dev/sdc", Kind: "E", Text: "second"},
	)

	assert.Contains(t, output, "first")
	assert.Contains(t, output, "second")
	// The progress bar character should appear (HUD was drawn).
	assert.Contains(t, output, "□")
}
