// Package ambient models the decorative background of the dashboard: a sky
// gradient plus rain, snow, cloud and star layers that move frame by frame.
package ambient

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/i474232898/brightside/internal/weather"
)

const (
	rainDrops  = 300
	snowFlakes = 150
	cloudCount = 8
	starCount  = 150
)

// Particle is a rain streak or a snow flake.
type Particle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Speed  float64 `json:"speed"`
	Length float64 `json:"length"`
	Size   float64 `json:"size"`
}

// Cloud is a soft radial blob drifting to the right.
type Cloud struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Radius  float64 `json:"r"`
	Speed   float64 `json:"s"`
	Opacity float64 `json:"o"`
}

// Star twinkles in place; Alpha is its current brightness.
type Star struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Size  float64 `json:"size"`
	Base  float64 `json:"-"`
	Alpha float64 `json:"alpha"`
}

// Scene is the animated state of the background for one condition and time of day.
// A Scene is owned by a single goroutine; it is not safe for concurrent use.
type Scene struct {
	Code      int
	TimeOfDay weather.TimeOfDay
	Width     float64
	Height    float64

	Gradient string
	SunGlow  bool
	MoonGlow bool
	Raining  bool
	Snowing  bool

	Particles []Particle
	Clouds    []Cloud
	Stars     []Star

	rng   *rand.Rand
	frame uint64
}

// NewRand returns a deterministic source for scene layout.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewScene lays out the layers for a condition code (0 when unknown) and time of day
// on a canvas of the given size.
func NewScene(code int, tod weather.TimeOfDay, width, height float64, rng *rand.Rand) *Scene {
	if rng == nil {
		rng = NewRand(uint64(time.Now().UnixNano()))
	}

	raining := code >= 300 && code < 600
	snowing := code >= 600 && code < 700
	cloudy := code > 800
	dark := tod == weather.Night || tod == weather.Dusk

	s := &Scene{
		Code:      code,
		TimeOfDay: tod,
		Width:     width,
		Height:    height,
		Gradient:  Gradient(code, tod),
		SunGlow:   (tod == weather.Day || tod == weather.Dawn) && !(code >= 200 && code < 300),
		MoonGlow:  dark,
		Raining:   raining,
		Snowing:   snowing,
		rng:       rng,
	}

	if raining || snowing {
		n, maxSpeed := snowFlakes, 2.0
		if raining {
			n, maxSpeed = rainDrops, 15.0
		}
		s.Particles = make([]Particle, 0, n)
		for i := 0; i < n; i++ {
			s.Particles = append(s.Particles, Particle{
				X:      rng.Float64() * width,
				Y:      rng.Float64() * height,
				Speed:  rng.Float64()*maxSpeed + 2,
				Length: rng.Float64()*20 + 5,
				Size:   rng.Float64()*2 + 1,
			})
		}
	}

	if cloudy || raining || snowing {
		s.Clouds = make([]Cloud, 0, cloudCount)
		for i := 0; i < cloudCount; i++ {
			s.Clouds = append(s.Clouds, Cloud{
				X:       rng.Float64() * width,
				Y:       rng.Float64() * height * 0.4,
				Radius:  rng.Float64()*100 + 50,
				Speed:   rng.Float64()*0.2 + 0.1,
				Opacity: rng.Float64()*0.3 + 0.1,
			})
		}
	}

	if dark && code != 0 && code < 803 {
		s.Stars = make([]Star, 0, starCount)
		for i := 0; i < starCount; i++ {
			base := rng.Float64()
			s.Stars = append(s.Stars, Star{
				X:     rng.Float64() * width,
				Y:     rng.Float64() * height,
				Size:  rng.Float64() * 2,
				Base:  base,
				Alpha: base,
			})
		}
	}

	return s
}

// Step advances every layer by one frame at wall-clock time now.
func (s *Scene) Step(now time.Time) {
	s.frame++

	ms := float64(now.UnixMilli())
	for i := range s.Stars {
		st := &s.Stars[i]
		st.Alpha = math.Abs(math.Sin(ms*0.001+st.X)) * st.Base
	}

	for i := range s.Clouds {
		c := &s.Clouds[i]
		c.X += c.Speed
		if c.X-c.Radius > s.Width {
			c.X = -c.Radius
		}
	}

	for i := range s.Particles {
		p := &s.Particles[i]
		p.Y += p.Speed
		if s.Snowing {
			p.X += math.Sin(p.Y*0.01) * 0.5
		}
		if p.Y > s.Height {
			p.Y = -20
			p.X = s.rng.Float64() * s.Width
		}
	}
}

// Frame is a serializable copy of a scene at one point in time.
type Frame struct {
	Seq       uint64            `json:"seq"`
	At        time.Time         `json:"at"`
	Gradient  string            `json:"gradient"`
	TimeOfDay weather.TimeOfDay `json:"timeOfDay"`
	SunGlow   bool              `json:"sunGlow"`
	MoonGlow  bool              `json:"moonGlow"`
	Raining   bool              `json:"raining"`
	Particles []Particle        `json:"particles,omitempty"`
	Clouds    []Cloud           `json:"clouds,omitempty"`
	Stars     []Star            `json:"stars,omitempty"`
}

// Frame copies the current state so it can be handed to another goroutine.
func (s *Scene) Frame(at time.Time) Frame {
	return Frame{
		Seq:       s.frame,
		At:        at,
		Gradient:  s.Gradient,
		TimeOfDay: s.TimeOfDay,
		SunGlow:   s.SunGlow,
		MoonGlow:  s.MoonGlow,
		Raining:   s.Raining,
		Particles: append([]Particle(nil), s.Particles...),
		Clouds:    append([]Cloud(nil), s.Clouds...),
		Stars:     append([]Star(nil), s.Stars...),
	}
}

// Gradient returns the CSS background for a condition code and time of day.
// Weather codes take precedence; clear or unknown skies follow the clock.
func Gradient(code int, tod weather.TimeOfDay) string {
	switch {
	case code >= 200 && code < 300:
		return "linear-gradient(to bottom, #141E30, #243B55)"
	case code >= 300 && code < 600:
		return "linear-gradient(to bottom, #203a43, #2c5364)"
	case code >= 600 && code < 700:
		return "linear-gradient(to bottom, #83a4d4, #b6fbff)"
	case code >= 700 && code < 800:
		return "linear-gradient(to bottom, #3E5151, #DECBA4)"
	case code > 800 && tod == weather.Night:
		return "linear-gradient(to bottom, #232526, #414345)"
	case code > 800:
		return "linear-gradient(to bottom, #5D4157, #A8CABA)"
	}

	switch tod {
	case weather.Dawn:
		return "linear-gradient(to bottom, #f46b45, #eea849)"
	case weather.Day:
		return "linear-gradient(to bottom, #2980b9, #6dd5fa, #ffffff)"
	case weather.Dusk:
		return "linear-gradient(to bottom, #2b5876, #4e4376)"
	default:
		return "linear-gradient(to bottom, #0f2027, #203a43, #2c5364)"
	}
}
