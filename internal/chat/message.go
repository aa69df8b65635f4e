// Package chat implements the conversational session engine for the
// stage-based financing flow: a finite-state dialogue controller that turns
// one-line commands into backend calls and renders the results as chat
// messages.
package chat

import "sync"

// Sender identifies which side of the conversation produced a message.
type Sender int

const (
	SenderUser Sender = iota
	SenderSystem
)

func (s Sender) String() string {
	if s == SenderUser {
		return "user"
	}
	return "system"
}

// Message is one transcript entry. Immutable once appended.
type Message struct {
	ID        int64
	Text      string
	Sender    Sender
	Timestamp string // display-formatted clock reading
}

// Transcript is the append-only ordered log of exchanged messages. IDs are
// monotonic; entries are never reordered or mutated. Safe for concurrent
// use: the UI reads while a turn may still be appending.
type Transcript struct {
	mu     sync.Mutex
	msgs   []Message
	nextID int64
}

// Append adds a message and returns the stored entry with its assigned ID.
func (t *Transcript) Append(sender Sender, text, timestamp string) Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	m := Message{ID: t.nextID, Text: text, Sender: sender, Timestamp: timestamp}
	t.msgs = append(t.msgs, m)
	return m
}

// Messages returns a copy of the transcript in append order.
func (t *Transcript) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

// Len returns the number of messages appended so far.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.msgs)
}
