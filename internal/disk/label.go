package disk

import (
	"os"
	"path/filepath"
	"strings"
)

// SysClassBlock is where the kernel exposes per-block-device attributes.
const SysClassBlock = "/sys/class/block"

// Label returns a human-readable "Vendor Model" name for a device path, or
// an empty string when sysfs has nothing to say about it.
func Label(path string) string {
	return labelFrom(SysClassBlock, filepath.Base(path))
}

func labelFrom(root, name string) string {
	dir := filepath.Join(root, name)
	if _, err := os.Stat(dir); err != nil {
		return ""
	}
	vendor := readAttr(filepath.Join(dir, "device", "vendor"))
	model := readAttr(filepath.Join(dir, "device", "model"))

	label := model
	if vendor != "" {
		label = vendor + " " + model
	}
	return strings.TrimSpace(strings.ReplaceAll(label, "_", " "))
}

func readAttr(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
