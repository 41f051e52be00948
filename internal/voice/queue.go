package voice

import (
	"sync/atomic"

	"github.com/gaze-pointer/monitor/internal/metrics"
)

// DefaultQueueSize bounds the commands waiting for the next tick.
const DefaultQueueSize = 16

// Queue hands commands from recogniser goroutines to the poll loop. Push
// never blocks; a full queue drops the command.
type Queue struct {
	ch      chan Command
	dropped atomic.Int64
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{ch: make(chan Command, size)}
}

// Push enqueues c and reports whether it was accepted.
func (q *Queue) Push(c Command) bool {
	select {
	case q.ch <- c:
		metrics.RecordVoiceCommand("queued")
		return true
	default:
		q.dropped.Add(1)
		metrics.RecordVoiceCommand("dropped")
		return false
	}
}

// Drain returns every queued command without waiting.
func (q *Queue) Drain() []Command {
	var out []Command
	for {
		select {
		case c := <-q.ch:
			out = append(out, c)
		default:
			return out
		}
	}
}

// Dropped returns how many commands were dropped since creation.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}
