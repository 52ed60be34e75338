package chat

import "sync"

// Log is the append-only, unbounded sequence of messages shown in the panel.
// Insertion order is display order.
type Log struct {
	mu       sync.RWMutex
	messages []Message
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{messages: make([]Message, 0, 16)}
}

// Append adds a message to the end of the log.
func (l *Log) Append(message Message) {
	l.mu.Lock()
	l.messages = append(l.messages, message)
	l.mu.Unlock()
}

// Len reports how many messages have been appended.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Empty reports whether nothing has been appended yet.
func (l *Log) Empty() bool {
	return l.Len() == 0
}

// Messages returns a copy of the log in display order.
func (l *Log) Messages() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	copied := make([]Message, len(l.messages))
	copy(copied, l.messages)
	return copied
}
