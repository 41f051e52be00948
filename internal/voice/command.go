// Package voice turns recognised speech into pointer commands and hands them
// to the poll loop through a non-blocking queue.
package voice

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/gaze-pointer/monitor/internal/pointer"
)

type ActionKind string

const (
	ActionClick ActionKind = "click"
	ActionWheel ActionKind = "wheel"
)

// Action is the pointer effect of one spoken word.
type Action struct {
	Kind   ActionKind
	Button pointer.Button
	Delta  int
}

func (a Action) String() string {
	switch a.Kind {
	case ActionClick:
		return a.Button.String() + "_click"
	case ActionWheel:
		if a.Delta < 0 {
			return fmt.Sprintf("wheel_down:%d", -a.Delta)
		}
		return fmt.Sprintf("wheel_up:%d", a.Delta)
	default:
		return "unknown"
	}
}

// Perform applies the action to p.
func (a Action) Perform(p pointer.Pointer) error {
	switch a.Kind {
	case ActionClick:
		return p.Click(a.Button)
	case ActionWheel:
		return p.Wheel(a.Delta)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, a.Kind)
	}
}

var ErrUnknownAction = errors.New("unknown voice action")

// ParseAction parses the configuration form of an action: left_click,
// right_click, middle_click, wheel_up or wheel_down, the wheel forms taking
// an optional ":steps" suffix.
func ParseAction(s string) (Action, error) {
	name, stepsStr, hasSteps := strings.Cut(strings.TrimSpace(s), ":")
	steps := 1
	if hasSteps {
		n, err := strconv.Atoi(stepsStr)
		if err != nil || n <= 0 {
			return Action{}, fmt.Errorf("%w: bad step count in %q", ErrUnknownAction, s)
		}
		steps = n
	}

	switch name {
	case "left_click":
		return Action{Kind: ActionClick, Button: pointer.ButtonLeft}, nil
	case "right_click":
		return Action{Kind: ActionClick, Button: pointer.ButtonRight}, nil
	case "middle_click":
		return Action{Kind: ActionClick, Button: pointer.ButtonMiddle}, nil
	case "wheel_up":
		return Action{Kind: ActionWheel, Delta: steps}, nil
	case "wheel_down":
		return Action{Kind: ActionWheel, Delta: -steps}, nil
	default:
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

// Command is one recognised word with its action.
type Command struct {
	Word   string
	Action Action
	At     time.Time
}

// Table maps lower-case words to actions.
type Table map[string]Action

// DefaultWords is the stock vocabulary in configuration form.
var DefaultWords = map[string]string{
	"select":    "left_click",
	"sélection": "left_click",
	"option":    "right_click",
	"montée":    "wheel_up",
	"descente":  "wheel_down",
	"uplift":    "wheel_up:4",
	"down":      "wheel_down:4",
}

func DefaultTable() Table {
	t, _ := NewTable(DefaultWords)
	return t
}

// NewTable parses a word to action mapping.
func NewTable(words map[string]string) (Table, error) {
	t := make(Table, len(words))
	for word, action := range words {
		a, err := ParseAction(action)
		if err != nil {
			return nil, fmt.Errorf("voice word %q: %w", word, err)
		}
		t[strings.ToLower(word)] = a
	}
	return t, nil
}

// Match returns a command for every table word in text, in spoken order.
func (t Table) Match(text string, at time.Time) []Command {
	var cmds []Command
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) })
		if a, ok := t[w]; ok {
			cmds = append(cmds, Command{Word: w, Action: a, At: at})
		}
	}
	return cmds
}
