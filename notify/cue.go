package notify

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/benjamonnguyen/chilltimer/timer"
)

// Bell rings the terminal bell. A terminal has no volume control so any
// positive volume rings and zero stays silent.
type Bell struct {
	mu sync.Mutex
	w  io.Writer
}

func NewBell(w io.Writer) *Bell {
	return &Bell{w: w}
}

func (b *Bell) Play(ctx context.Context, volume float64) error {
	if volume <= 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := io.WriteString(b.w, "\a")
	return err
}

// Cues plays every player concurrently and joins their errors.
type Cues []timer.CuePlayer

func (c Cues) Play(ctx context.Context, volume float64) error {
	errs := make([]error, len(c))
	var wg sync.WaitGroup
	for i, p := range c {
		wg.Go(func() {
			errs[i] = p.Play(ctx, volume)
		})
	}
	wg.Wait()
	return errors.Join(errs...)
}
