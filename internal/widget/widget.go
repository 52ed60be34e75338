package widget

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/helpchat/internal/model/chat"
)

// FallbackText is rendered as a bot reply whenever a request fails.
const FallbackText = "An error occurred. Please try again."

// View is the UI surface the widget is bound to: the panel container, the
// scrollable log region and the text input.
type View interface {
	SetPanelVisible(visible bool)
	AppendMessage(message chat.Message)
	ClearInput()
}

// Client issues the two requests the widget knows about.
type Client interface {
	Welcome(ctx context.Context) (string, error)
	Query(ctx context.Context, query string) (string, error)
}

// Option customises a Widget.
type Option func(*Widget)

// WithLogger sets the diagnostic channel request failures are reported on.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Widget) {
		w.logger = logger
	}
}

// Widget controls a toggleable chat panel. It owns the message log and issues
// fire-and-forget requests; replies are appended in the order they resolve.
type Widget struct {
	view   View
	client Client
	logger zerolog.Logger
	log    *chat.Log

	// toggleMu keeps the view's visibility in step with visible.
	toggleMu sync.Mutex
	mu       sync.Mutex
	visible  bool

	// appendMu keeps the view in the same order as the log.
	appendMu sync.Mutex
	inflight sync.WaitGroup
}

// New binds a widget to its view and client. The panel starts hidden.
func New(view View, client Client, opts ...Option) *Widget {
	w := &Widget{
		view:   view,
		client: client,
		logger: zerolog.Nop(),
		log:    chat.NewLog(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Visible reports whether the panel is currently shown.
func (w *Widget) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

// Messages returns the log in display order.
func (w *Widget) Messages() []chat.Message {
	return w.log.Messages()
}

// TogglePanel flips panel visibility. Showing the panel fetches the welcome
// message when the log is still empty.
func (w *Widget) TogglePanel(ctx context.Context) {
	w.toggleMu.Lock()
	w.mu.Lock()
	w.visible = !w.visible
	visible := w.visible
	w.mu.Unlock()
	w.view.SetPanelVisible(visible)
	w.toggleMu.Unlock()

	if visible {
		w.InitializeChat(ctx)
	}
}

// SubmitQuery appends the visitor's text, clears the input and requests a
// reply. Blank input is ignored. It reports whether a query was sent.
func (w *Widget) SubmitQuery(ctx context.Context, text string) bool {
	query := strings.TrimSpace(text)
	if query == "" {
		return false
	}

	w.appendMessage(chat.NewMessage(query, chat.Visitor))
	w.view.ClearInput()
	w.FetchResponse(ctx, query)
	return true
}

// FetchResponse sends query to the assistant in the background and appends
// the reply, or FallbackText on failure.
func (w *Widget) FetchResponse(ctx context.Context, query string) {
	w.dispatch(ctx, "query", func(ctx context.Context) (string, error) {
		return w.client.Query(ctx, query)
	})
}

// InitializeChat requests the welcome message if nothing has been shown yet.
func (w *Widget) InitializeChat(ctx context.Context) {
	if !w.log.Empty() {
		return
	}
	w.dispatch(ctx, "welcome", w.client.Welcome)
}

// Wait blocks until every request issued so far has appended its reply.
func (w *Widget) Wait() {
	w.inflight.Wait()
}

func (w *Widget) dispatch(ctx context.Context, kind string, call func(context.Context) (string, error)) {
	// Requests outlive the event that triggered them.
	ctx = context.WithoutCancel(ctx)

	w.inflight.Add(1)
	go func() {
		defer w.inflight.Done()

		text, err := call(ctx)
		if err != nil {
			w.logger.Error().Err(err).Str("request", kind).Msg("chat request failed")
			text = FallbackText
		}
		w.appendMessage(chat.NewMessage(text, chat.Bot))
	}()
}

func (w *Widget) appendMessage(message chat.Message) {
	w.appendMu.Lock()
	defer w.appendMu.Unlock()

	w.log.Append(message)
	w.view.AppendMessage(message)
}
