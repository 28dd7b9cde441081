package ambient

import (
	"context"
	"time"
)

// DefaultFPS is the frame rate of streamed scenes.
const DefaultFPS = 10

// Animator drives a Scene with a per-frame callback until its context ends.
type Animator struct {
	interval time.Duration
}

// NewAnimator returns an Animator ticking fps times per second.
func NewAnimator(fps int) *Animator {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Animator{interval: time.Second / time.Duration(fps)}
}

// Run steps the scene and hands each frame to fn. It returns ctx.Err() once the
// context is cancelled, or the first error fn returns. The ticker is always released.
func (a *Animator) Run(ctx context.Context, scene *Scene, fn func(Frame) error) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			scene.Step(now)
			if err := fn(scene.Frame(now)); err != nil {
				return err
			}
		}
	}
}
