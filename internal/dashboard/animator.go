package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jgoulah/velocount/internal/dataset"
	"github.com/jgoulah/velocount/internal/render"
	"github.com/jgoulah/velocount/pkg/models"
)

// Speed is a named animation interval
type Speed string

const (
	SpeedNone   Speed = "none"
	SpeedSlow   Speed = "slow"
	SpeedMedium Speed = "medium"
	SpeedFast   Speed = "fast"
)

var intervals = map[Speed]time.Duration{
	SpeedNone:   0,
	SpeedSlow:   400 * time.Millisecond,
	SpeedMedium: 200 * time.Millisecond,
	SpeedFast:   50 * time.Millisecond,
}

// ParseSpeed validates a speed name
func ParseSpeed(name string) (Speed, error) {
	s := Speed(name)
	if _, ok := intervals[s]; !ok {
		return "", fmt.Errorf("unknown animation speed %q (use none, slow, medium or fast)", name)
	}
	return s, nil
}

// Interval returns the time between frames; zero means paused
func (s Speed) Interval() time.Duration {
	return intervals[s]
}

// Frame is one month of the animation as sent to websocket clients
type Frame struct {
	Month string          `json:"month"`
	Rows  []models.MapRow `json:"rows"`
	Deck  render.Deck     `json:"deck"`
}

// NewFrame projects the dataset onto one month
func NewFrame(ds *dataset.Dataset, m models.Month) Frame {
	rows := ds.MapRows(m.Year, m.Month)
	return Frame{
		Month: m.String(),
		Rows:  rows,
		Deck:  render.NewDeck(rows),
	}
}

// Animator cycles through the dataset's months and broadcasts a frame on
// every tick
type Animator struct {
	service *Service
	hub     *Hub

	mu      sync.Mutex
	speed   Speed
	index   int
	changed chan struct{}
}

// NewAnimator creates an animator that starts at the first month
func NewAnimator(service *Service, hub *Hub, speed Speed) *Animator {
	return &Animator{
		service: service,
		hub:     hub,
		speed:   speed,
		index:   -1,
		changed: make(chan struct{}, 1),
	}
}

// Speed returns the current speed
func (a *Animator) Speed() Speed {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.speed
}

// SetSpeed changes the speed; the running loop picks it up immediately
func (a *Animator) SetSpeed(s Speed) {
	a.mu.Lock()
	a.speed = s
	a.mu.Unlock()

	select {
	case a.changed <- struct{}{}:
	default:
	}
}

// Current returns the frame for the month currently shown, if any
func (a *Animator) Current() (Frame, bool) {
	ds := a.service.Dataset()
	months := ds.Months()
	if len(months) == 0 {
		return Frame{}, false
	}

	a.mu.Lock()
	i := a.index
	a.mu.Unlock()
	if i < 0 {
		i = 0
	}
	return NewFrame(ds, months[i%len(months)]), true
}

// Step advances to the next month, wrapping around, and broadcasts its frame
func (a *Animator) Step() (Frame, bool) {
	ds := a.service.Dataset()
	months := ds.Months()
	if len(months) == 0 {
		return Frame{}, false
	}

	a.mu.Lock()
	a.index = (a.index + 1) % len(months)
	m := months[a.index]
	a.mu.Unlock()

	frame := NewFrame(ds, m)
	a.hub.Broadcast(frame)
	return frame, true
}

// Run ticks until ctx is done
func (a *Animator) Run(ctx context.Context) {
	t := time.NewTimer(time.Hour)
	t.Stop()
	defer t.Stop()

	if d := a.Speed().Interval(); d > 0 {
		t.Reset(d)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.changed:
			t.Stop()
			if d := a.Speed().Interval(); d > 0 {
				t.Reset(d)
			}
		case <-t.C:
			a.Step()
			if d := a.Speed().Interval(); d > 0 {
				t.Reset(d)
			}
		}
	}
}
