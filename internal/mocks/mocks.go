// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/flightsearch-cli/internal/automation"
)

// -- Browser Session Mock --

// MockSession mocks browser.Session. Close is counted separately from the
// testify expectations so tests can assert it ran exactly once even when
// they set no expectation for it.
type MockSession struct {
	mock.Mock

	mu         sync.Mutex
	closeCalls int
}

func (m *MockSession) Navigate(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

func (m *MockSession) Probe(ctx context.Context, sel automation.Selector) (automation.ElementState, error) {
	args := m.Called(ctx, sel)
	return args.Get(0).(automation.ElementState), args.Error(1)
}

func (m *MockSession) Texts(ctx context.Context, sel automation.Selector) ([]string, error) {
	args := m.Called(ctx, sel)
	if texts := args.Get(0); texts != nil {
		return texts.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSession) Activate(ctx context.Context, ref automation.ElementRef) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

func (m *MockSession) TypeText(ctx context.Context, ref automation.ElementRef, text string) error {
	args := m.Called(ctx, ref, text)
	return args.Error(0)
}

// Close records the call. A return value is taken from an expectation when
// one was set with On("Close").
func (m *MockSession) Close() error {
	m.mu.Lock()
	m.closeCalls++
	m.mu.Unlock()

	for _, call := range m.ExpectedCalls {
		if call.Method == "Close" {
			return m.Called().Error(0)
		}
	}
	return nil
}

// CloseCalls returns how often Close ran.
func (m *MockSession) CloseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalls
}

// -- Page Mock --

// MockPage mocks automation.Page alone, for step tests that need exact
// call expectations.
type MockPage struct {
	mock.Mock
}

func (m *MockPage) Probe(ctx context.Context, sel automation.Selector) (automation.ElementState, error) {
	args := m.Called(ctx, sel)
	return args.Get(0).(automation.ElementState), args.Error(1)
}

func (m *MockPage) Texts(ctx context.Context, sel automation.Selector) ([]string, error) {
	args := m.Called(ctx, sel)
	if texts := args.Get(0); texts != nil {
		return texts.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPage) Activate(ctx context.Context, ref automation.ElementRef) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

func (m *MockPage) TypeText(ctx context.Context, ref automation.ElementRef, text string) error {
	args := m.Called(ctx, ref, text)
	return args.Error(0)
}
