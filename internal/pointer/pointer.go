// Package pointer injects pointer moves, clicks and wheel steps into the
// desktop session.
package pointer

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os/exec"
	"strconv"
	"sync"
)

type Button int

const (
	ButtonLeft Button = iota + 1
	ButtonMiddle
	ButtonRight
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonMiddle:
		return "middle"
	case ButtonRight:
		return "right"
	default:
		return "unknown"
	}
}

// Pointer moves and clicks the system pointer. Coordinates are screen
// pixels; a positive wheel delta scrolls up.
type Pointer interface {
	MoveAbsolute(x, y float64) error
	Click(b Button) error
	Wheel(delta int) error
}

var ErrUnknownDriver = errors.New("unknown pointer driver")

// New returns the driver named by the configuration: "log" or "xdotool".
func New(driver string) (Pointer, error) {
	switch driver {
	case "", "log":
		return Log{}, nil
	case "xdotool":
		return NewXdotool()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// Log is a dry-run driver that only logs the actions it is asked for.
type Log struct{}

func (Log) MoveAbsolute(x, y float64) error {
	log.Printf("[pointer] move to (%.0f, %.0f)", x, y)
	return nil
}

func (Log) Click(b Button) error {
	log.Printf("[pointer] %s click", b)
	return nil
}

func (Log) Wheel(delta int) error {
	log.Printf("[pointer] wheel %+d", delta)
	return nil
}

// Xdotool drives the X11 pointer through the xdotool binary.
type Xdotool struct {
	run func(args ...string) error
}

// NewXdotool locates xdotool on PATH.
func NewXdotool() (*Xdotool, error) {
	path, err := exec.LookPath("xdotool")
	if err != nil {
		return nil, fmt.Errorf("xdotool not found: %w", err)
	}
	return &Xdotool{
		run: func(args ...string) error {
			out, err := exec.Command(path, args...).CombinedOutput()
			if err != nil {
				return fmt.Errorf("xdotool %v: %w: %s", args, err, out)
			}
			return nil
		},
	}, nil
}

func (x *Xdotool) MoveAbsolute(px, py float64) error {
	return x.run("mousemove", itoa(math.Round(px)), itoa(math.Round(py)))
}

func (x *Xdotool) Click(b Button) error {
	return x.run("click", strconv.Itoa(int(b)))
}

// Wheel clicks X11 button 4 (up) or 5 (down) once per step.
func (x *Xdotool) Wheel(delta int) error {
	if delta == 0 {
		return nil
	}
	button := "4"
	if delta < 0 {
		button = "5"
		delta = -delta
	}
	return x.run("click", "--repeat", strconv.Itoa(delta), button)
}

func itoa(f float64) string {
	return strconv.Itoa(int(f))
}

// Action is one call recorded by a Recorder.
type Action struct {
	Kind   string
	X, Y   float64
	Button Button
	Delta  int
}

// Recorder remembers every action. Err, when set, is returned by every call
// after recording it.
type Recorder struct {
	mu      sync.Mutex
	actions []Action
	Err     error
}

func (r *Recorder) record(a Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, a)
	return r.Err
}

func (r *Recorder) MoveAbsolute(x, y float64) error {
	return r.record(Action{Kind: "move", X: x, Y: y})
}

func (r *Recorder) Click(b Button) error {
	return r.record(Action{Kind: "click", Button: b})
}

func (r *Recorder) Wheel(delta int) error {
	return r.record(Action{Kind: "wheel", Delta: delta})
}

// Actions returns a copy of the recorded actions.
func (r *Recorder) Actions() []Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Action(nil), r.actions...)
}
