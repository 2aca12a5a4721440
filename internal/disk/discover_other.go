//go:build !linux

package disk

import (
	"context"
	"fmt"
	"runtime"

	"github.com/bamsammich/burn/internal/platform"
)

func discover(_ context.Context, _ DiscoverOptions) ([]Device, error) {
	return nil, fmt.Errorf("device discovery on %s: %w", runtime.GOOS, platform.ErrUnsupported)
}
