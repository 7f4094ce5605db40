// Package convtest provides test doubles for conversation scenarios.
package convtest

import (
	"context"
	"sync"

	"github.com/m3rciful/restobot/bot/conv"
)

// Recorder is a conv.Responder that keeps everything it was asked to send.
type Recorder struct {
	mu      sync.Mutex
	replies []conv.Reply
	notices []string
	typing  int
	// Err, when set, is returned from Reply.
	Err error
}

var _ conv.Responder = (*Recorder)(nil)

func (r *Recorder) Reply(_ context.Context, reply conv.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, reply)
	return r.Err
}

func (r *Recorder) Typing(context.Context) error {
	r.mu.Lock()
	r.typing++
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Notice(_ context.Context, text string) error {
	r.mu.Lock()
	r.notices = append(r.notices, text)
	r.mu.Unlock()
	return nil
}

// Replies returns a copy of the recorded replies.
func (r *Recorder) Replies() []conv.Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]conv.Reply(nil), r.replies...)
}

// Texts returns the text of every reply.
func (r *Recorder) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.replies))
	for _, rep := range r.replies {
		out = append(out, rep.Text)
	}
	return out
}

// Last returns the most recent reply.
func (r *Recorder) Last() conv.Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.replies) == 0 {
		return conv.Reply{}
	}
	return r.replies[len(r.replies)-1]
}

// Notices returns the recorded toasts.
func (r *Recorder) Notices() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.notices...)
}

// TypingCount is the number of typing indications sent.
func (r *Recorder) TypingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.typing
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.replies, r.notices, r.typing = nil, nil, 0
	r.mu.Unlock()
}

// Actions lists every action button of the last reply, row by row.
func (r *Recorder) Actions() []conv.Action {
	var out []conv.Action
	for _, row := range r.Last().Keyboard {
		for _, b := range row {
			if b.URL == "" {
				out = append(out, b.Action)
			}
		}
	}
	return out
}
