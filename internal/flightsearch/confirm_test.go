// internal/flightsearch/confirm_test.go
package flightsearch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var testConfirmation = Confirmation{
	RunID: "run-1",
	Query: TripQuery{
		DepartureCity: "Seoul",
		ArrivalCity:   "Busan",
		StartDate:     time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC),
	},
}

func TestAutoConfirm(t *testing.T) {
	assert.NoError(t, AutoConfirm{}.Confirm(context.Background(), testConfirmation))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, AutoConfirm{}.Confirm(ctx, testConfirmation), context.Canceled)
}

func TestChannelConfirmer(t *testing.T) {
	defer goleak.VerifyNone(t)

	ch := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- ChannelConfirmer(ch).Confirm(context.Background(), testConfirmation) }()

	select {
	case <-done:
		t.Fatal("confirmer returned before the signal")
	case <-time.After(20 * time.Millisecond):
	}
	close(ch)
	assert.NoError(t, <-done)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, ChannelConfirmer(make(chan struct{})).Confirm(ctx, testConfirmation), context.DeadlineExceeded)
}

func TestPromptConfirmer(t *testing.T) {
	defer goleak.VerifyNone(t)

	var out bytes.Buffer
	p := NewPromptConfirmer(strings.NewReader("\n\n"), &out)

	require.NoError(t, p.Confirm(context.Background(), testConfirmation))
	require.NoError(t, p.Confirm(context.Background(), testConfirmation))
	assert.Equal(t, 2, strings.Count(out.String(), DefaultPrompt))
	assert.Contains(t, out.String(), "[run-1] Seoul -> Busan")

	// EOF counts as confirmation so a closed stdin never hangs a run.
	assert.NoError(t, p.Confirm(context.Background(), testConfirmation))
}

func TestPromptConfirmer_Cancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	r, w := io.Pipe()
	p := NewPromptConfirmer(r, nil)
	p.Message = "Inspect the results"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Confirm(ctx, testConfirmation), context.Canceled)

	// Unblock the pending read so the reader goroutine exits.
	require.NoError(t, w.Close())
	time.Sleep(10 * time.Millisecond)
}

func TestPromptConfirmer_CancelledPromptLeavesLineForNext(t *testing.T) {
	defer goleak.VerifyNone(t)

	r, w := io.Pipe()
	p := NewPromptConfirmer(r, nil)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() { first <- p.Confirm(ctx, testConfirmation) }()
	time.Sleep(5 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	second := make(chan error, 1)
	go func() { second <- p.Confirm(context.Background(), testConfirmation) }()
	_, err := w.Write([]byte("\n"))
	require.NoError(t, err)

	select {
	case err := <-second:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("line after a cancelled prompt did not reach the next prompt")
	}

	require.NoError(t, w.Close())
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("tty detached") }

func TestPromptConfirmer_ReadError(t *testing.T) {
	err := NewPromptConfirmer(errReader{}, nil).Confirm(context.Background(), testConfirmation)
	assert.ErrorContains(t, err, "tty detached")
}

func TestSerialized(t *testing.T) {
	defer goleak.VerifyNone(t)

	var mu sync.Mutex
	active, peak := 0, 0
	inner := ConfirmFunc(func(ctx context.Context, _ Confirmation) error {
		mu.Lock()
		active++
		if active > peak {
			peak = active
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		return nil
	})

	c := Serialized(inner)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Confirm(context.Background(), testConfirmation))
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, peak)
}

func TestSerialized_CancelWhileQueued(t *testing.T) {
	defer goleak.VerifyNone(t)

	hold := make(chan struct{})
	c := Serialized(ChannelConfirmer(hold))

	first := make(chan error, 1)
	go func() { first <- c.Confirm(context.Background(), testConfirmation) }()
	time.Sleep(5 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.Confirm(ctx, testConfirmation), context.DeadlineExceeded)

	close(hold)
	assert.NoError(t, <-first)
}
