package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bamsammich/burn/internal/disk"
	"github.com/bamsammich/burn/internal/ui"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List removable disks that can be flashed",
	Long: `List removable USB disks with their label and size. These are the
devices burn --all would select before filters are applied.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDevices,
}

func init() {
	devicesCmd.Flags().Bool("json", false, "print the list as JSON")
	devicesCmd.Flags().Bool("all", false, "include fixed and non-USB disks")
	devicesCmd.Flags().String("sysfs", "/sys", "sysfs mount point")
	if err := devicesCmd.Flags().MarkHidden("sysfs"); err != nil {
		panic(fmt.Sprintf("hide flag: %v", err))
	}
}

func runDevices(cmd *cobra.Command, _ []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")     //nolint:errcheck // flag name is hardcoded
	all, _ := cmd.Flags().GetBool("all")         //nolint:errcheck // flag name is hardcoded
	sysRoot, _ := cmd.Flags().GetString("sysfs") //nolint:errcheck // flag name is hardcoded

	devices, err := disk.Discover(cmd.Context(), disk.DiscoverOptions{All: all, SysRoot: sysRoot})
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("discover disks: %w", err)}
	}

	out := cmd.OutOrStdout()
	if asJSON {
		return writeDevicesJSON(out, devices)
	}
	if len(devices) == 0 {
		fmt.Fprintln(os.Stderr, "no removable disks found")
		return nil
	}
	writeDevices(out, devices)
	return nil
}

func writeDevicesJSON(w io.Writer, devices []disk.Device) error {
	if devices == nil {
		devices = []disk.Device{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(devices)
}

func writeDevices(w io.Writer, devices []disk.Device) {
	width := len("DEVICE")
	for _, d := range devices {
		width = max(width, len(d.Path))
	}
	fmt.Fprintf(w, "%-*s  %9s  %s\n", width, "DEVICE", "SIZE", "LABEL")
	for _, d := range devices {
		label := d.Label
		if label == "" {
			label = "-"
		}
		if !d.USB {
			label += " (fixed)"
		}
		fmt.Fprintf(w, "%-*s  %9s  %s\n", width, d.Path, ui.FormatBytes(d.Size), label)
	}
}
