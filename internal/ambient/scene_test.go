package ambient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/brightside/internal/weather"
)

func TestNewSceneLayers(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		tod       weather.TimeOfDay
		particles int
		clouds    int
		stars     int
		sunGlow   bool
	}{
		{name: "rain by day", code: 501, tod: weather.Day, particles: rainDrops, clouds: cloudCount, sunGlow: true},
		{name: "drizzle counts as rain", code: 300, tod: weather.Day, particles: rainDrops, clouds: cloudCount, sunGlow: true},
		{name: "snow at dusk", code: 601, tod: weather.Dusk, particles: snowFlakes, clouds: cloudCount, stars: starCount},
		{name: "clear night", code: 800, tod: weather.Night, stars: starCount},
		{name: "few clouds night", code: 801, tod: weather.Night, clouds: cloudCount, stars: starCount},
		{name: "overcast night", code: 804, tod: weather.Night, clouds: cloudCount},
		{name: "thunderstorm hides sun", code: 211, tod: weather.Day, stars: 0},
		{name: "unknown code at dawn", code: 0, tod: weather.Dawn, sunGlow: true},
		{name: "unknown code at night", code: 0, tod: weather.Night},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScene(tt.code, tt.tod, 800, 600, NewRand(1))
			assert.Len(t, s.Particles, tt.particles)
			assert.Len(t, s.Clouds, tt.clouds)
			assert.Len(t, s.Stars, tt.stars)
			assert.Equal(t, tt.sunGlow, s.SunGlow)
		})
	}
}

func TestSceneStepWrapsParticles(t *testing.T) {
	s := NewScene(500, weather.Day, 100, 100, NewRand(7))
	for i := range s.Particles {
		s.Particles[i].Y = 99
		s.Particles[i].Speed = 5
	}

	s.Step(time.Unix(0, 0))

	for _, p := range s.Particles {
		assert.Equal(t, -20.0, p.Y)
		assert.GreaterOrEqual(t, p.X, 0.0)
		assert.Less(t, p.X, 100.0)
	}
	assert.Equal(t, uint64(1), s.Frame(time.Unix(0, 0)).Seq)
}

func TestSceneStepWrapsClouds(t *testing.T) {
	s := NewScene(804, weather.Day, 200, 100, NewRand(3))
	s.Clouds[0].X = 260
	s.Clouds[0].Radius = 50
	s.Clouds[0].Speed = 0.2

	s.Step(time.Now())

	assert.Equal(t, -50.0, s.Clouds[0].X)
}

func TestStarsTwinkleWithinBase(t *testing.T) {
	s := NewScene(800, weather.Night, 300, 300, NewRand(11))
	s.Step(time.Unix(1700000000, 0))
	for _, st := range s.Stars {
		assert.GreaterOrEqual(t, st.Alpha, 0.0)
		assert.LessOrEqual(t, st.Alpha, st.Base)
	}
}

func TestFrameIsACopy(t *testing.T) {
	s := NewScene(500, weather.Day, 100, 100, NewRand(5))
	f := s.Frame(time.Now())
	f.Particles[0].Y = -999

	assert.NotEqual(t, -999.0, s.Particles[0].Y)
}

func TestGradient(t *testing.T) {
	assert.Equal(t, "linear-gradient(to bottom, #141E30, #243B55)", Gradient(202, weather.Day))
	assert.Equal(t, "linear-gradient(to bottom, #232526, #414345)", Gradient(803, weather.Night))
	assert.Equal(t, "linear-gradient(to bottom, #5D4157, #A8CABA)", Gradient(803, weather.Day))
	assert.Equal(t, "linear-gradient(to bottom, #f46b45, #eea849)", Gradient(800, weather.Dawn))
	assert.Equal(t, "linear-gradient(to bottom, #0f2027, #203a43, #2c5364)", Gradient(0, weather.Night))
}

func TestAnimatorStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	scene := NewScene(800, weather.Night, 100, 100, NewRand(1))

	frames := 0
	done := make(chan error, 1)
	go func() {
		done <- NewAnimator(200).Run(ctx, scene, func(Frame) error {
			frames++
			if frames == 3 {
				cancel()
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("animator did not stop after cancel")
	}
	assert.GreaterOrEqual(t, frames, 3)
}

func TestAnimatorStopsOnCallbackError(t *testing.T) {
	errGone := errors.New("client went away")
	scene := NewScene(500, weather.Day, 100, 100, NewRand(1))

	err := NewAnimator(100).Run(context.Background(), scene, func(Frame) error {
		return errGone
	})

	require.ErrorIs(t, err, errGone)
}
