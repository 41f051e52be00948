package voice

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/gaze-pointer/monitor/internal/pointer"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		in      string
		want    Action
		wantErr bool
	}{
		{"left_click", Action{Kind: ActionClick, Button: pointer.ButtonLeft}, false},
		{"right_click", Action{Kind: ActionClick, Button: pointer.ButtonRight}, false},
		{"wheel_up", Action{Kind: ActionWheel, Delta: 1}, false},
		{"wheel_down:4", Action{Kind: ActionWheel, Delta: -4}, false},
		{"wheel_up:0", Action{}, true},
		{"wheel_up:x", Action{}, true},
		{"double_click", Action{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAction(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAction(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownAction) {
					t.Errorf("error %v does not wrap ErrUnknownAction", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseAction(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDefaultTableMatch(t *testing.T) {
	table := DefaultTable()
	at := time.Unix(100, 0)

	got := table.Match("Sélection, puis option et montée!", at)
	want := []Command{
		{Word: "sélection", Action: Action{Kind: ActionClick, Button: pointer.ButtonLeft}, At: at},
		{Word: "option", Action: Action{Kind: ActionClick, Button: pointer.ButtonRight}, At: at},
		{Word: "montée", Action: Action{Kind: ActionWheel, Delta: 1}, At: at},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Match mismatch (-want +got):\n%s", diff)
	}

	if cmds := table.Match("selection options", at); len(cmds) != 0 {
		t.Errorf("partial words matched: %+v", cmds)
	}
}

func TestNewTableRejectsBadAction(t *testing.T) {
	_, err := NewTable(map[string]string{"jump": "teleport"})
	if !errors.Is(err, ErrUnknownAction) {
		t.Errorf("NewTable error = %v, want ErrUnknownAction", err)
	}
}

func TestQueueDropsWhenFull(t *testing.T) {
	q := NewQueue(2)
	for i := range 3 {
		ok := q.Push(Command{Word: "select"})
		if want := i < 2; ok != want {
			t.Errorf("Push #%d = %v, want %v", i, ok, want)
		}
	}
	if q.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", q.Dropped())
	}
	if n := len(q.Drain()); n != 2 {
		t.Errorf("Drain returned %d commands, want 2", n)
	}
	if cmds := q.Drain(); cmds != nil {
		t.Errorf("second Drain = %v, want nil", cmds)
	}
}

func TestActionPerform(t *testing.T) {
	r := &pointer.Recorder{}
	for _, name := range []string{"left_click", "wheel_down:4"} {
		a, err := ParseAction(name)
		if err != nil {
			t.Fatal(err)
		}
		if err := a.Perform(r); err != nil {
			t.Fatalf("Perform(%s): %v", name, err)
		}
	}
	want := []pointer.Action{
		{Kind: "click", Button: pointer.ButtonLeft},
		{Kind: "wheel", Delta: -4},
	}
	if diff := cmp.Diff(want, r.Actions()); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}

	if err := (Action{Kind: "wink"}).Perform(r); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("Perform unknown = %v, want ErrUnknownAction", err)
	}
}

func TestLineSource(t *testing.T) {
	input := strings.Join([]string{
		`{"text": "select"}`,
		"",
		"descente descente",
		`{"partial": "opt"}`,
		"nothing to see",
	}, "\n")
	q := NewQueue(8)
	src := NewLineSource(strings.NewReader(input), DefaultTable(), q)

	if err := src.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var words []string
	for _, c := range q.Drain() {
		words = append(words, c.Word)
	}
	want := []string{"select", "descente", "descente"}
	if diff := cmp.Diff(want, words, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("queued words mismatch (-want +got):\n%s", diff)
	}
}

func TestLineSourceStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q := NewQueue(8)
	src := NewLineSource(strings.NewReader("select\nselect\n"), DefaultTable(), q)

	if err := src.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
	if n := len(q.Drain()); n != 0 {
		t.Errorf("queued %d commands after cancel", n)
	}
}

func TestLineSourceUnblocksOnCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	q := NewQueue(8)
	src := NewLineSource(pr, DefaultTable(), q)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx) }()

	if _, err := pw.Write([]byte("select\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	var queued []Command
	deadline := time.Now().Add(2 * time.Second)
	for len(queued) == 0 && time.Now().Before(deadline) {
		queued = q.Drain()
		time.Sleep(5 * time.Millisecond)
	}
	if len(queued) != 1 {
		t.Fatalf("queued %d commands, want 1", len(queued))
	}

	// Run is now blocked reading the next line.
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run still blocked on the reader after cancel")
	}
}
