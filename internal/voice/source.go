package voice

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log"
	"strings"
	"time"
)

// LineSource reads recogniser transcripts, one utterance per line, and
// queues every known word. A line is either plain text or a recogniser
// result object such as {"text": "sélection"}.
type LineSource struct {
	r     io.Reader
	table Table
	queue *Queue
	now   func() time.Time
}

func NewLineSource(r io.Reader, table Table, queue *Queue) *LineSource {
	return &LineSource{r: r, table: table, queue: queue, now: time.Now}
}

// Run reads until EOF, a read error or ctx is cancelled. If the reader is
// an io.Closer it is closed on cancellation so a blocked read returns.
func (s *LineSource) Run(ctx context.Context) error {
	if c, ok := s.r.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stop()
	}

	scanner := bufio.NewScanner(s.r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		text := transcript(scanner.Text())
		if text == "" {
			continue
		}
		for _, cmd := range s.table.Match(text, s.now()) {
			if !s.queue.Push(cmd) {
				log.Printf("[voice] Queue full, dropped %q", cmd.Word)
			}
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return scanner.Err()
}

type recognizerResult struct {
	Text string `json:"text"`
}

func transcript(line string) string {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "{") {
		var res recognizerResult
		if err := json.Unmarshal([]byte(line), &res); err == nil {
			return res.Text
		}
	}
	return line
}
