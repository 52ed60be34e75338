package chat

import (
	"fmt"
	"sync"
	"testing"
)

func TestLogPreservesAppendOrder(t *testing.T) {
	log := NewLog()
	if !log.Empty() {
		t.Fatal("expected new log to be empty")
	}

	for i := 0; i < 5; i++ {
		log.Append(NewMessage(fmt.Sprintf("m%d", i), Visitor))
	}

	messages := log.Messages()
	if len(messages) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(messages))
	}
	for i, msg := range messages {
		if want := fmt.Sprintf("m%d", i); msg.Text != want {
			t.Fatalf("message %d: got %q want %q", i, msg.Text, want)
		}
	}
}

func TestLogMessagesReturnsCopy(t *testing.T) {
	log := NewLog()
	log.Append(NewMessage("hello", Bot))

	snapshot := log.Messages()
	snapshot[0].Text = "mutated"

	if got := log.Messages()[0].Text; got != "hello" {
		t.Fatalf("log was mutated through snapshot: %q", got)
	}
}

func TestLogConcurrentAppends(t *testing.T) {
	log := NewLog()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Append(NewMessage("x", Bot))
		}()
	}
	wg.Wait()

	if log.Len() != 50 {
		t.Fatalf("expected 50 messages, got %d", log.Len())
	}
}

func TestNewMessageStampsIdentity(t *testing.T) {
	a := NewMessage("a", Visitor)
	b := NewMessage("a", Visitor)
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected distinct non-empty ids, got %q and %q", a.ID, b.ID)
	}
	if a.CreatedAt.IsZero() {
		t.Fatal("expected creation time to be set")
	}
}
