package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bamsammich/burn/internal/image"
	"github.com/bamsammich/burn/internal/ui"
)

var hashCmd = &cobra.Command{
	Use:           "hash [--algo ALGO] <image>",
	Short:         "Print the checksum of an image",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runHash,
}

func init() {
	hashCmd.Flags().String("algo", string(image.BLAKE3), "checksum algorithm ("+algoList()+")")
}

func algoList() string {
	return strings.Join(image.Algorithms(), ", ")
}

func runHash(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("algo") //nolint:errcheck // flag name is hardcoded
	algo, err := image.ParseAlgorithm(name)
	if err != nil {
		return err
	}
	path := args[0]

	img, err := image.Open(path)
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("image %s: %w", path, err)}
	}
	defer img.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var onProgress func(int64)
	if ui.IsTTY(os.Stderr.Fd()) {
		onProgress = hashProgress(img.Size)
	}
	sum, err := image.Hash(ctx, img, algo, onProgress)
	if onProgress != nil {
		fmt.Fprint(os.Stderr, "\r\033[K")
	}
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("checksum %s: %w", path, err)}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", sum, path)
	return nil
}

// hashProgress redraws a one-line bar on stderr at most every 100ms.
func hashProgress(size int64) func(int64) {
	var last time.Time
	return func(n int64) {
		if size <= 0 || time.Since(last) < 100*time.Millisecond {
			return
		}
		last = time.Now()
		frac := float64(n) / float64(size)
		fmt.Fprintf(os.Stderr, "\r\033[Khashing %s %3.0f%%  %s / %s",
			ui.ProgressBar(frac, 30), frac*100, ui.FormatBytes(n), ui.FormatBytes(size))
	}
}
