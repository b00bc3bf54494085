// Package llmtest provides a scripted model for exercising pipelines
// without network access.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/Epistemic-Technology/casebrief/internal/llm"
)

// Handler produces a completion for one request.
type Handler func(req llm.Request) (string, error)

// Fake is a concurrency-safe scripted model. Requests are routed by label
// to a registered handler, falling back to Default.
type Fake struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []llm.Request

	// Default answers labels with no registered handler. When nil the fake
	// fails the call.
	Default Handler
}

func New() *Fake {
	return &Fake{handlers: make(map[string]Handler)}
}

// On registers h for requests with the given label.
func (f *Fake) On(label string, h Handler) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[label] = h
	return f
}

// Reply registers a constant answer for label.
func (f *Fake) Reply(label, output string) *Fake {
	return f.On(label, func(llm.Request) (string, error) { return output, nil })
}

func (f *Fake) Complete(ctx context.Context, req llm.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f.mu.Lock()
	f.calls = append(f.calls, req)
	h, ok := f.handlers[req.Label]
	if !ok {
		h = f.Default
	}
	f.mu.Unlock()
	if h == nil {
		return "", fmt.Errorf("llmtest: no handler for label %q", req.Label)
	}
	return h(req)
}

// Calls returns a copy of every request received so far.
func (f *Fake) Calls() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.calls...)
}

// CallsFor returns the requests received with the given label.
func (f *Fake) CallsFor(label string) []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []llm.Request
	for _, c := range f.calls {
		if c.Label == label {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many requests carried label.
func (f *Fake) Count(label string) int {
	return len(f.CallsFor(label))
}

var _ llm.Model = (*Fake)(nil)
