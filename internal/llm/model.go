package llm

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrRateLimited is returned when the provider rejects a call for exceeding
	// its rate limit. Retryable.
	ErrRateLimited = errors.New("model rate limited")
	// ErrInvalidResponse is returned when a structured response does not match
	// the requested schema.
	ErrInvalidResponse = errors.New("model returned invalid response")
	// ErrTransport covers network and 5xx failures. Retryable.
	ErrTransport = errors.New("model transport failure")
	// ErrTimeout is returned when a single call exceeds its deadline.
	ErrTimeout = errors.New("model call timed out")
)

// Schema constrains a completion to a JSON document.
type Schema struct {
	Name       string
	Definition map[string]any
}

// Attachment is a binary input sent alongside the prompt, such as a single
// PDF page to transcribe.
type Attachment struct {
	Filename string
	MIMEType string
	Data     []byte
}

type Request struct {
	Prompt     string
	Schema     *Schema
	Attachment *Attachment
	// Label identifies the prompt template for logging and test routing.
	Label string
}

// Model is a text completion backend.
type Model interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Func adapts a plain function to the Model interface.
type Func func(ctx context.Context, req Request) (string, error)

func (f Func) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Panel assigns models to the roles used by multi-draft reductions.
// Drafters produce independent drafts, the Aggregator merges them and the
// Verifier checks the merge against its inputs. Default serves single-call
// steps.
type Panel struct {
	Drafters   []Model
	Aggregator Model
	Verifier   Model
	Default    Model
}

// SinglePanel uses one model for every role with a single drafter.
func SinglePanel(m Model) Panel {
	return Panel{Drafters: []Model{m}, Aggregator: m, Verifier: m, Default: m}
}

// Validate checks every role is filled.
func (p Panel) Validate() error {
	if len(p.Drafters) == 0 {
		return errors.New("panel has no drafters")
	}
	for i, d := range p.Drafters {
		if d == nil {
			return fmt.Errorf("panel drafter %d is nil", i)
		}
	}
	if p.Aggregator == nil || p.Verifier == nil || p.Default == nil {
		return errors.New("panel roles aggregator, verifier and default must be set")
	}
	return nil
}

