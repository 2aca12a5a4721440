package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bamsammich/burn/internal/disk"
)

// Confirm lists the devices about to be overwritten and asks for a yes on
// in. Anything but "y" or "yes" declines; so does EOF.
func Confirm(in io.Reader, out io.Writer, image string, devices []disk.Device) (bool, error) {
	fmt.Fprintf(out, "%sThe following devices will be overwritten with %s:%s\n", ansiBold, image, ansiReset)
	for _, d := range devices {
		line := "  " + d.Path
		if d.Label != "" {
			line += "  " + d.Label
		}
		if d.Size > 0 {
			line += "  " + FormatBytes(d.Size)
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprint(out, "Continue? [y/N] ")

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
