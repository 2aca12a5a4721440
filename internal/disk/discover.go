package disk

import "context"

// Device is a discovered whole-disk block device.
type Device struct {
	Path      string `json:"path"`
	Label     string `json:"label"`
	Size      int64  `json:"size"`
	Removable bool   `json:"removable"`
	USB       bool   `json:"usb"`
}

// DiscoverOptions controls Discover.
type DiscoverOptions struct {
	// All includes fixed, non-USB disks as well.
	All bool

	// SysRoot and DevRoot override /sys and /dev.
	SysRoot string
	DevRoot string
}

// Discover lists removable USB disks, or every whole disk with opts.All.
func Discover(ctx context.Context, opts DiscoverOptions) ([]Device, error) {
	if opts.SysRoot == "" {
		opts.SysRoot = "/sys"
	}
	if opts.DevRoot == "" {
		opts.DevRoot = "/dev"
	}
	return discover(ctx, opts)
}
