package disk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const sectorSize = 512

// virtualPrefixes are kernel block devices that are never physical media.
var virtualPrefixes = []string{"loop", "ram", "zram", "dm-", "md", "sr", "nbd"}

func discover(ctx context.Context, opts DiscoverOptions) ([]Device, error) {
	blockDir := filepath.Join(opts.SysRoot, "block")
	entries, err := os.ReadDir(blockDir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", blockDir, err)
	}

	var devices []Device
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := e.Name()
		if isVirtual(name) {
			continue
		}
		dir := filepath.Join(blockDir, name)

		d := Device{
			Path:      filepath.Join(opts.DevRoot, name),
			Label:     labelFrom(blockDir, name),
			Removable: readAttr(filepath.Join(dir, "removable")) == "1",
			USB:       onUSBBus(dir),
		}
		if sectors, err := strconv.ParseInt(readAttr(filepath.Join(dir, "size")), 10, 64); err == nil {
			d.Size = sectors * sectorSize
		}
		if d.Size == 0 {
			continue
		}
		if !opts.All && !d.USB {
			continue
		}
		devices = append(devices, d)
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].Path < devices[j].Path })
	return devices, nil
}

func isVirtual(name string) bool {
	for _, p := range virtualPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// onUSBBus follows the sysfs device link and looks for a usb component in
// the resolved bus path.
func onUSBBus(dir string) bool {
	target, err := filepath.EvalSymlinks(filepath.Join(dir, "device"))
	if err != nil {
		target, err = filepath.EvalSymlinks(dir)
		if err != nil {
			return false
		}
	}
	for _, part := range strings.Split(target, string(filepath.Separator)) {
		if strings.HasPrefix(part, "usb") {
			return true
		}
	}
	return false
}
