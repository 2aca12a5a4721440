package engine

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// maxBurst bounds the limiter burst so a capped session cannot push a whole
// chunk through at once.
const maxBurst = 1 << 20

// NewBWLimiter returns a limiter for --bwlimit that admits bytesPerSec
// source bytes per second. bytesPerSec must be positive.
func NewBWLimiter(bytesPerSec int64) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(bytesPerSec), int(min(bytesPerSec, maxBurst)))
}

// throttle wraps r so that reads draw from lim. A nil lim returns r as is.
func throttle(ctx context.Context, r io.Reader, lim *rate.Limiter) io.Reader {
	if lim == nil {
		return r
	}
	return &throttledReader{ctx: ctx, r: r, lim: lim}
}

type throttledReader struct {
	ctx context.Context
	r   io.Reader
	lim *rate.Limiter
}

// Read never returns more than one burst, since WaitN rejects larger n.
func (tr *throttledReader) Read(p []byte) (int, error) {
	if b := tr.lim.Burst(); b > 0 && len(p) > b {
		p = p[:b]
	}
	n, err := tr.r.Read(p)
	if n == 0 {
		return 0, err
	}
	if werr := tr.lim.WaitN(tr.ctx, n); werr != nil {
		return n, werr
	}
	return n, err
}
