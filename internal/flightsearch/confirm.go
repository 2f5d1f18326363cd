// internal/flightsearch/confirm.go
package flightsearch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
)

// Confirmation describes the run waiting at the barrier.
type Confirmation struct {
	RunID string
	Query TripQuery
}

// Confirmer is the barrier between a submitted search and teardown. Confirm
// blocks until the operator lets the run close the browser, or until ctx
// ends, in which case it returns ctx.Err().
type Confirmer interface {
	Confirm(ctx context.Context, c Confirmation) error
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, c Confirmation) error

func (f ConfirmFunc) Confirm(ctx context.Context, c Confirmation) error { return f(ctx, c) }

// AutoConfirm releases the barrier immediately.
type AutoConfirm struct{}

func (AutoConfirm) Confirm(ctx context.Context, _ Confirmation) error { return ctx.Err() }

// ChannelConfirmer releases the barrier when a value is received or the
// channel is closed.
type ChannelConfirmer <-chan struct{}

func (ch ChannelConfirmer) Confirm(ctx context.Context, _ Confirmation) error {
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PromptConfirmer asks on out and waits for a line on in. A single reader
// goroutine owns in, so a prompt abandoned on cancellation leaves the next
// line to the next prompt.
type PromptConfirmer struct {
	in      *bufio.Reader
	out     io.Writer
	Message string

	start sync.Once
	lines chan struct{}
	done  chan struct{}
	err   error // set before done is closed
}

// NewPromptConfirmer reads confirmations line by line from in. out may be
// nil.
func NewPromptConfirmer(in io.Reader, out io.Writer) *PromptConfirmer {
	return &PromptConfirmer{
		in:    bufio.NewReader(in),
		out:   out,
		lines: make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// DefaultPrompt is shown by the CLI while the browser stays open.
const DefaultPrompt = "Press Enter to close the browser"

// readLines hands one line at a time to waiting prompts. EOF closes done
// with a nil err, which releases every later prompt.
func (p *PromptConfirmer) readLines() {
	defer close(p.done)
	for {
		_, err := p.in.ReadString('\n')
		if err == io.EOF {
			return
		}
		if err != nil {
			p.err = fmt.Errorf("read confirmation: %w", err)
			return
		}
		p.lines <- struct{}{}
	}
}

func (p *PromptConfirmer) Confirm(ctx context.Context, c Confirmation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := p.Message
	if msg == "" {
		msg = DefaultPrompt
	}
	if p.out != nil {
		fmt.Fprintf(p.out, "[%s] %s: %s...\n", c.RunID, c.Query, msg)
	}

	p.start.Do(func() { go p.readLines() })
	select {
	case <-p.lines:
		return nil
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Serialized lets only one run at a time wait on c. It is used when several
// runs share a single terminal.
func Serialized(c Confirmer) Confirmer {
	sem := make(chan struct{}, 1)
	return ConfirmFunc(func(ctx context.Context, conf Confirmation) error {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
		defer func() { <-sem }()
		return c.Confirm(ctx, conf)
	})
}
