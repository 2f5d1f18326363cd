// File: cmd/flightsearch/main_test.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetMocks() {
	osWriteFile = os.WriteFile
	osExit = os.Exit
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 0, exitCode(fmt.Errorf("run: %w", context.Canceled)))
	assert.Equal(t, 1, exitCode(errors.New("timed out")))
	assert.Equal(t, 1, exitCode(context.DeadlineExceeded))
}

func TestHandlePanic(t *testing.T) {
	defer resetMocks()

	var written []byte
	var code int
	osWriteFile = func(name string, data []byte, perm os.FileMode) error {
		assert.Equal(t, panicLogFile, name)
		written = data
		return nil
	}
	osExit = func(c int) { code = c }

	func() {
		defer handlePanic()
		panic("locator table corrupted")
	}()

	assert.Equal(t, 2, code)
	require.NotEmpty(t, written)
	assert.Contains(t, string(written), "panic: locator table corrupted")
	assert.Contains(t, string(written), "goroutine")
}

func TestHandlePanic_WriteFails(t *testing.T) {
	defer resetMocks()

	var code int
	osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only filesystem") }
	osExit = func(c int) { code = c }

	func() {
		defer handlePanic()
		panic("boom")
	}()
	assert.Equal(t, 2, code)
}

func TestHandlePanic_NoPanic(t *testing.T) {
	defer resetMocks()
	osExit = func(int) { t.Fatal("exit must not be called without a panic") }

	func() {
		defer handlePanic()
	}()
}
