package stats

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bamsammich/burn/internal/event"
)

const ringSize = 60

// DefaultWindow is how many one-second samples are averaged for the
// displayed speed of a device.
const DefaultWindow = 3

// Outcome is where a device ended up.
type Outcome int

const (
	Active Outcome = iota
	Succeeded
	Failed
	Mismatched
)

func (o Outcome) String() string {
	switch o {
	case Active:
		return "active"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Mismatched:
		return "mismatched"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

var phaseNames = map[string]string{
	"W": "writing",
	"F": "flushing",
	"S": "seeking",
	"V": "verifying",
}

// Device is a point-in-time view of one destination.
type Device struct {
	Path    string
	Label   string
	Phase   string
	Written int64
	Outcome Outcome
	Err     string
}

type device struct {
	Device
	kind string

	// Ring buffer of bytes-per-tick, written only by Tick.
	ring        [ringSize]int64
	ringIdx     int
	ringCount   int
	lastWritten int64
}

func (d *device) rollingAvg(n int) float64 {
	count := min(n, d.ringCount)
	if count <= 0 {
		return 0
	}
	var sum int64
	for i := range count {
		sum += d.ring[(d.ringIdx-1-i+ringSize)%ringSize]
	}
	return float64(sum) / float64(count)
}

// Collector folds session events into per-device progress and throughput.
// It is safe for concurrent use.
type Collector struct {
	mu         sync.Mutex
	imageSize  int64
	devices    map[string]*device
	order      []string
	window     int
	startTime  time.Time
	sessionErr error
	finished   bool
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{
		devices:   make(map[string]*device),
		window:    DefaultWindow,
		startTime: time.Now(),
	}
}

// SetWindow changes how many samples Speed averages.
func (c *Collector) SetWindow(n int) {
	if n < 1 {
		n = 1
	}
	c.mu.Lock()
	c.window = n
	c.mu.Unlock()
}

// Apply records one event.
func (c *Collector) Apply(ev event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Type {
	case event.SessionStarted:
		c.imageSize = ev.Size
	case event.DeviceAdded:
		d := c.device(ev.Path)
		if ev.Label != "" {
			d.Label = ev.Label
		}
	case event.DeviceProgress:
		c.device(ev.Path).Written = ev.Size
	case event.DeviceMessage:
		d := c.device(ev.Path)
		if ev.Kind == "E" {
			d.Err = ev.Text
			return
		}
		if name, ok := phaseNames[ev.Kind]; ok {
			d.kind = ev.Kind
			d.Phase = name
		}
	case event.DeviceFinished:
		d := c.device(ev.Path)
		d.Outcome = classify(d)
		d.Phase = "done"
	case event.SessionFinished:
		c.sessionErr = ev.Error
		c.finished = true
	}
}

// classify maps a finished device to its outcome. Only a content difference
// found by the read-back is a mismatch; a read error or a short device while
// verifying is a failure like any other.
func classify(d *device) Outcome {
	switch {
	case d.Err == "":
		return Succeeded
	case d.kind == "V" && strings.HasPrefix(d.Err, "error verifying disk") && strings.Contains(d.Err, ": mismatch at "):
		return Mismatched
	default:
		return Failed
	}
}

func (c *Collector) device(path string) *device {
	d, ok := c.devices[path]
	if !ok {
		d = &device{Device: Device{Path: path, Phase: phaseNames["W"]}, kind: "W"}
		c.devices[path] = d
		c.order = append(c.order, path)
	}
	return d
}

// Tick samples every device's progress into its ring buffer. Presenters
// call it once per second.
func (c *Collector) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, d := range c.devices {
		delta := d.Written - d.lastWritten
		if delta < 0 {
			// A new phase started from zero.
			delta = d.Written
		}
		d.lastWritten = d.Written
		if d.Outcome != Active {
			delta = 0
		}
		d.ring[d.ringIdx] = delta
		d.ringIdx = (d.ringIdx + 1) % ringSize
		if d.ringCount < ringSize {
			d.ringCount++
		}
	}
}

// RollingSpeed returns the average bytes/sec of path over the last n samples.
func (c *Collector) RollingSpeed(path string, n int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.devices[path]
	if !ok {
		return 0
	}
	return d.rollingAvg(n)
}

// Speed is RollingSpeed over the configured window.
func (c *Collector) Speed(path string) float64 {
	c.mu.Lock()
	n := c.window
	c.mu.Unlock()
	return c.RollingSpeed(path, n)
}

// TotalSpeed sums the windowed speed of every active device.
func (c *Collector) TotalSpeed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total float64
	for _, d := range c.devices {
		if d.Outcome == Active {
			total += d.rollingAvg(c.window)
		}
	}
	return total
}

// SparklineData returns the last n bytes/sec samples of path, oldest
// first. An empty path sums all devices.
func (c *Collector) SparklineData(path string, n int) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var devices []*device
	if path == "" {
		for _, p := range c.order {
			devices = append(devices, c.devices[p])
		}
	} else if d, ok := c.devices[path]; ok {
		devices = []*device{d}
	}

	var count int
	for _, d := range devices {
		count = max(count, min(n, d.ringCount))
	}
	if count == 0 {
		return nil
	}

	data := make([]float64, count)
	for _, d := range devices {
		have := min(count, d.ringCount)
		for i := range have {
			idx := (d.ringIdx - have + i + ringSize) % ringSize
			data[count-have+i] += float64(d.ring[idx])
		}
	}
	return data
}

// ETA estimates the time left in path's current phase.
func (c *Collector) ETA(path string) time.Duration {
	speed := c.Speed(path)
	if speed <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.devices[path]
	if !ok {
		return 0
	}
	remaining := c.imageSize - d.Written
	if remaining <= 0 {
		return 0
	}
	return time.Duration(float64(remaining)/speed) * time.Second
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

// Snapshot is a point-in-time read of the whole session.
type Snapshot struct {
	ImageSize  int64
	Devices    []Device
	Succeeded  int
	Failed     int
	Mismatched int
	Active     int
	Finished   bool
	Err        error
	Elapsed    time.Duration
}

// Snapshot returns a consistent copy of every device in the order they
// were first seen.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		ImageSize: c.imageSize,
		Devices:   make([]Device, 0, len(c.order)),
		Finished:  c.finished,
		Err:       c.sessionErr,
		Elapsed:   time.Since(c.startTime),
	}
	for _, p := range c.order {
		d := c.devices[p]
		s.Devices = append(s.Devices, d.Device)
		switch d.Outcome {
		case Active:
			s.Active++
		case Succeeded:
			s.Succeeded++
		case Failed:
			s.Failed++
		case Mismatched:
			s.Mismatched++
		}
	}
	return s
}

// Total is the number of devices in the session.
func (s Snapshot) Total() int { return len(s.Devices) }

// With returns the devices that ended with outcome o.
func (s Snapshot) With(o Outcome) []Device {
	var out []Device
	for _, d := range s.Devices {
		if d.Outcome == o {
			out = append(out, d)
		}
	}
	return out
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"devices=%d succeeded=%d failed=%d mismatched=%d active=%d",
		s.Total(), s.Succeeded, s.Failed, s.Mismatched, s.Active,
	)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
