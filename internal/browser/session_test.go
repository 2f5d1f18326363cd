// internal/browser/session_test.go
package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/flightsearch-cli/internal/automation"
	"github.com/xkilldash9x/flightsearch-cli/internal/config"
	"github.com/xkilldash9x/flightsearch-cli/internal/locator"
)

func TestCombineContext(t *testing.T) {
	type ctxKey string
	const key ctxKey = "tab"

	t.Run("InheritsValuesFromPrimary", func(t *testing.T) {
		primary := context.WithValue(context.Background(), key, "cdp")
		ctx, cancel := CombineContext(primary, context.Background())
		defer cancel()

		assert.Equal(t, "cdp", ctx.Value(key))
		assert.NoError(t, ctx.Err())
	})

	t.Run("CancelledByPrimary", func(t *testing.T) {
		primary, cancelPrimary := context.WithCancel(context.Background())
		ctx, cancel := CombineContext(primary, context.Background())
		defer cancel()

		cancelPrimary()
		<-ctx.Done()
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
	})

	t.Run("CancelledByOperation", func(t *testing.T) {
		op, cancelOp := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancelOp()
		ctx, cancel := CombineContext(context.Background(), op)
		defer cancel()

		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
			t.Fatal("combined context outlived the operation context")
		}
	})

	t.Run("CancelLeavesPrimaryAlive", func(t *testing.T) {
		primary, cancelPrimary := context.WithCancel(context.Background())
		defer cancelPrimary()
		ctx, cancel := CombineContext(primary, context.Background())
		cancel()

		assert.ErrorIs(t, ctx.Err(), context.Canceled)
		assert.NoError(t, primary.Err())
	})
}

func TestSplitFlag(t *testing.T) {
	tests := []struct {
		arg       string
		wantName  string
		wantValue interface{}
	}{
		{"--lang=ko-KR", "lang", "ko-KR"},
		{"--mute-audio", "mute-audio", true},
		{"proxy-server=http://127.0.0.1:8080", "proxy-server", "http://127.0.0.1:8080"},
		{"  ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			name, value := splitFlag(tt.arg)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestAllocatorOptions(t *testing.T) {
	base := config.BrowserConfig{}
	minimal := AllocatorOptions(base)

	full := AllocatorOptions(config.BrowserConfig{
		WindowWidth:  1440,
		WindowHeight: 900,
		UserAgent:    "test-agent",
		ExecPath:     "/opt/chrome/chrome",
		Args:         []string{"--lang=ko-KR", "--mute-audio", ""},
	})
	// window size, user agent, exec path and two usable args.
	assert.Len(t, full, len(minimal)+5)
}

func TestLaunchArgs(t *testing.T) {
	args := LaunchArgs(config.BrowserConfig{WindowWidth: 1440, WindowHeight: 900, Args: []string{"--lang=ko-KR"}})
	assert.Contains(t, args, "--no-sandbox")
	assert.Contains(t, args, "--window-size=1440,900")
	assert.Equal(t, "--lang=ko-KR", args[len(args)-1])
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), config.BrowserConfig{Driver: "selenium"}, zaptest.NewLogger(t))

	var launchErr *automation.LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.Equal(t, "selenium", launchErr.Driver)
}

func TestOpen_ChromedpMissingExecutable(t *testing.T) {
	cfg := config.NewDefaultConfig().Browser
	cfg.Headless = true
	cfg.ExecPath = "/nonexistent/flightsearch/chrome"
	cfg.LaunchTimeout = 10 * time.Second

	_, err := Open(context.Background(), cfg, zaptest.NewLogger(t))

	var launchErr *automation.LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.Equal(t, config.DriverChromedp, launchErr.Driver)
	assert.Error(t, errors.Unwrap(err))
}

func TestResolveRequest(t *testing.T) {
	table := locator.Default()
	groups, err := automation.Compile(table, locator.CalendarMonthGroup, nil)
	require.NoError(t, err)
	days, err := automation.Compile(table, locator.CalendarDayCell, &automation.ElementRef{Selector: groups, Index: 2})
	require.NoError(t, err)

	req := newRequest(opActivate, days, 4)
	assert.Equal(t, opActivate, req.Op)
	assert.Equal(t, days.XPath, req.XPath)
	assert.Equal(t, 4, req.Index)
	require.NotNil(t, req.Scope)
	assert.Equal(t, groups.XPath, req.Scope.XPath)
	assert.Equal(t, 2, req.Scope.Index)

	arg := req.asArg()
	assert.Equal(t, map[string]interface{}{"xpath": groups.XPath, "index": 2}, arg["scope"])

	expr, err := req.expression()
	require.NoError(t, err)
	assert.Contains(t, expr, resolverJS)
	assert.Contains(t, expr, `"op":"activate"`)
	assert.Contains(t, expr, `"index":4`)

	unscoped := newRequest(opProbe, groups, 0)
	assert.Nil(t, unscoped.Scope)
	_, hasScope := unscoped.asArg()["scope"]
	assert.False(t, hasScope)
}

func TestDecodeResponse(t *testing.T) {
	// Shape returned by playwright: numbers arrive as float64 or int.
	raw := map[string]interface{}{
		"found":          true,
		"count":          float64(3),
		"firstVisible":   1,
		"firstClickable": float64(2),
		"texts":          []interface{}{"02.05.", "03.05."},
		"scopeMissing":   false,
	}
	res, err := decodeResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, automation.ElementState{Count: 3, FirstVisible: 1, FirstClickable: 2}, res.state())
	assert.Equal(t, []string{"02.05.", "03.05."}, res.Texts)

	_, err = decodeResponse("not an object")
	assert.Error(t, err)
}

func TestResolveResponse_Check(t *testing.T) {
	table := locator.Default()
	groups, err := automation.Compile(table, locator.CalendarMonthGroup, nil)
	require.NoError(t, err)
	days, err := automation.Compile(table, locator.CalendarDayCell, &automation.ElementRef{Selector: groups, Index: 5})
	require.NoError(t, err)

	assert.NoError(t, resolveResponse{Found: true}.check(days, 0))
	assert.Equal(t, automation.NoMatch, resolveResponse{Found: false, Count: 7}.state())

	var notFound *automation.ElementNotFoundError
	err = resolveResponse{Found: false, ScopeMissing: true}.check(days, 0)
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, locator.CalendarDayCell, notFound.Target)
	assert.Contains(t, notFound.Reason, "scope calendar-month-group[5] is gone")

	err = resolveResponse{Found: false, Count: 3}.check(days, 9)
	require.ErrorAs(t, err, &notFound)
	assert.Contains(t, notFound.Reason, "no element at index 9 of 3")
}

func TestPlaywrightSession_CloseIsIdempotent(t *testing.T) {
	s := &pwSession{logger: zaptest.NewLogger(t)}
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}
