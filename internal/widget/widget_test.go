package widget

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/helpchat/internal/model/chat"
)

type fakeView struct {
	mu       sync.Mutex
	visible  []bool
	appended []chat.Message
	cleared  int
}

func (v *fakeView) SetPanelVisible(visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.visible = append(v.visible, visible)
}

func (v *fakeView) AppendMessage(message chat.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.appended = append(v.appended, message)
}

func (v *fakeView) ClearInput() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cleared++
}

type fakeClient struct {
	welcomeCalls atomic.Int32
	queryCalls   atomic.Int32

	welcome    string
	welcomeErr error
	reply      func(query string) (string, error)
	// gate, when set, holds every request until it is closed.
	gate chan struct{}
}

func (c *fakeClient) Welcome(context.Context) (string, error) {
	c.welcomeCalls.Add(1)
	if c.gate != nil {
		<-c.gate
	}
	return c.welcome, c.welcomeErr
}

func (c *fakeClient) Query(_ context.Context, query string) (string, error) {
	c.queryCalls.Add(1)
	if c.gate != nil {
		<-c.gate
	}
	if c.reply == nil {
		return "echo: " + query, nil
	}
	return c.reply(query)
}

func TestSubmitQueryAppendsVisitorMessageBeforeReply(t *testing.T) {
	view := &fakeView{}
	client := &fakeClient{gate: make(chan struct{})}
	w := New(view, client)

	sent := w.SubmitQuery(context.Background(), "  how do I rotate keys?  ")
	require.True(t, sent)

	messages := w.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "how do I rotate keys?", messages[0].Text)
	assert.Equal(t, chat.Visitor, messages[0].Origin)
	assert.Equal(t, 1, view.cleared)

	close(client.gate)
	w.Wait()

	messages = w.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, chat.Bot, messages[1].Origin)
	assert.Equal(t, "echo: how do I rotate keys?", messages[1].Text)
}

func TestSubmitQueryIgnoresBlankInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n"} {
		view := &fakeView{}
		client := &fakeClient{}
		w := New(view, client)

		assert.False(t, w.SubmitQuery(context.Background(), input))
		w.Wait()

		assert.Empty(t, w.Messages(), "input %q", input)
		assert.Zero(t, client.queryCalls.Load(), "input %q", input)
		assert.Zero(t, view.cleared, "input %q", input)
	}
}

func TestTogglePanelFetchesWelcomeOnce(t *testing.T) {
	view := &fakeView{}
	client := &fakeClient{welcome: "Hi"}
	w := New(view, client)
	ctx := context.Background()

	assert.False(t, w.Visible())

	w.TogglePanel(ctx)
	w.Wait()
	assert.True(t, w.Visible())
	assert.EqualValues(t, 1, client.welcomeCalls.Load())

	w.TogglePanel(ctx)
	w.TogglePanel(ctx)
	w.Wait()

	assert.EqualValues(t, 1, client.welcomeCalls.Load())
	assert.Equal(t, []bool{true, false, true}, view.visible)

	messages := w.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "Hi", messages[0].Text)
	assert.Equal(t, chat.Bot, messages[0].Origin)
}

func TestTogglePanelSkipsWelcomeWhenLogHasMessages(t *testing.T) {
	client := &fakeClient{}
	w := New(&fakeView{}, client)
	ctx := context.Background()

	w.SubmitQuery(ctx, "hello")
	w.Wait()
	w.TogglePanel(ctx)
	w.Wait()

	assert.Zero(t, client.welcomeCalls.Load())
}

func TestFetchResponseAppendsReply(t *testing.T) {
	client := &fakeClient{reply: func(string) (string, error) { return "Hello", nil }}
	w := New(&fakeView{}, client)

	w.FetchResponse(context.Background(), "hi")
	w.Wait()

	messages := w.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "Hello", messages[0].Text)
	assert.Equal(t, chat.Bot, messages[0].Origin)
}

func TestFetchResponseFailureAppendsFallback(t *testing.T) {
	var buf bytes.Buffer
	client := &fakeClient{reply: func(string) (string, error) { return "", errors.New("connection refused") }}
	w := New(&fakeView{}, client, WithLogger(zerolog.New(&buf)))

	require.NotPanics(t, func() {
		w.FetchResponse(context.Background(), "hi")
		w.Wait()
	})

	messages := w.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, FallbackText, messages[0].Text)
	assert.Equal(t, chat.Bot, messages[0].Origin)
	assert.Contains(t, buf.String(), "connection refused")
}

func TestWelcomeFailureAppendsFallback(t *testing.T) {
	client := &fakeClient{welcomeErr: errors.New("boom")}
	w := New(&fakeView{}, client)

	w.InitializeChat(context.Background())
	w.Wait()

	messages := w.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, FallbackText, messages[0].Text)
}

func TestWidgetStaysUsableAfterFailure(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	client := &fakeClient{reply: func(q string) (string, error) {
		if fail.Load() {
			return "", errors.New("down")
		}
		return "ok", nil
	}}
	w := New(&fakeView{}, client)
	ctx := context.Background()

	w.SubmitQuery(ctx, "first")
	w.Wait()
	fail.Store(false)
	w.SubmitQuery(ctx, "second")
	w.Wait()

	var texts []string
	for _, m := range w.Messages() {
		texts = append(texts, m.Text)
	}
	assert.Equal(t, []string{"first", FallbackText, "second", "ok"}, texts)
}

func TestRequestsSurviveCallerCancellation(t *testing.T) {
	client := &fakeClient{gate: make(chan struct{})}
	w := New(&fakeView{}, client)

	ctx, cancel := context.WithCancel(context.Background())
	w.SubmitQuery(ctx, "hello")
	cancel()
	close(client.gate)
	w.Wait()

	messages := w.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "echo: hello", messages[1].Text)
}

func TestViewMirrorsLogOrder(t *testing.T) {
	view := &fakeView{}
	w := New(view, &fakeClient{})
	ctx := context.Background()

	for _, q := range []string{"a", "b", "c", "d"} {
		w.SubmitQuery(ctx, q)
	}
	w.Wait()

	messages := w.Messages()
	require.Len(t, messages, 8)
	assert.Equal(t, messages, view.appended)

	visitors := 0
	for _, m := range messages {
		if m.Origin == chat.Visitor {
			visitors++
		}
	}
	assert.Equal(t, 4, visitors)
}

// blockingView holds its first SetPanelVisible call until release is closed.
type blockingView struct {
	fakeView
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (v *blockingView) SetPanelVisible(visible bool) {
	first := false
	v.once.Do(func() { first = true })
	if first {
		close(v.entered)
		<-v.release
	}
	v.fakeView.SetPanelVisible(visible)
}

func TestOverlappingTogglesKeepViewInStep(t *testing.T) {
	view := &blockingView{entered: make(chan struct{}), release: make(chan struct{})}
	w := New(view, &fakeClient{welcome: "Hi"})
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		w.TogglePanel(ctx)
	}()
	<-view.entered
	go func() {
		defer wg.Done()
		w.TogglePanel(ctx)
	}()
	time.Sleep(20 * time.Millisecond)
	close(view.release)
	wg.Wait()
	w.Wait()

	view.mu.Lock()
	defer view.mu.Unlock()
	require.Len(t, view.visible, 2)
	assert.Equal(t, []bool{true, false}, view.visible)
	assert.Equal(t, w.Visible(), view.visible[len(view.visible)-1])
}

// gatedClient holds each query until its own gate is closed.
type gatedClient struct {
	gates map[string]chan struct{}
}

func (c *gatedClient) Welcome(context.Context) (string, error) { return "", nil }

func (c *gatedClient) Query(_ context.Context, query string) (string, error) {
	<-c.gates[query]
	return "reply to " + query, nil
}

func TestRepliesAppendInResolutionOrder(t *testing.T) {
	client := &gatedClient{gates: map[string]chan struct{}{
		"first":  make(chan struct{}),
		"second": make(chan struct{}),
	}}
	w := New(&fakeView{}, client)
	ctx := context.Background()

	w.SubmitQuery(ctx, "first")
	w.SubmitQuery(ctx, "second")

	close(client.gates["second"])
	require.Eventually(t, func() bool { return len(w.Messages()) == 3 }, time.Second, 5*time.Millisecond)
	close(client.gates["first"])
	w.Wait()

	var texts []string
	for _, m := range w.Messages() {
		texts = append(texts, m.Text)
	}
	assert.Equal(t, []string{"first", "second", "reply to second", "reply to first"}, texts)
}
