// internal/browser/chromedp.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/flightsearch-cli/internal/automation"
	"github.com/xkilldash9x/flightsearch-cli/internal/config"
	"github.com/xkilldash9x/flightsearch-cli/internal/observability"
)

const (
	defaultLaunchTimeout = 60 * time.Second
	shutdownGracePeriod  = 15 * time.Second
)

// cdpSession drives one Chrome tab over the DevTools protocol.
type cdpSession struct {
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	logger      *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

var _ Session = (*cdpSession)(nil)

// AllocatorOptions returns the Chrome flags for a local launch.
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	for _, arg := range cfg.Args {
		name, value := splitFlag(arg)
		if name == "" {
			continue
		}
		opts = append(opts, chromedp.Flag(name, value))
	}
	return opts
}

// splitFlag turns "--name=value" into a chromedp flag; bare "--name" is a
// boolean switch.
func splitFlag(arg string) (string, interface{}) {
	arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
	if name, value, ok := strings.Cut(arg, "="); ok {
		return name, value
	}
	return arg, true
}

func openChromedp(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*cdpSession, error) {
	// The browser lives until Close, not until the caller's context ends.
	base := context.WithoutCancel(ctx)

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if cfg.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(base, cfg.RemoteURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(base, AllocatorOptions(cfg)...)
	}

	ctxOpts := []chromedp.ContextOption{chromedp.WithErrorf(observability.Printf(logger, zapcore.WarnLevel))}
	if cfg.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithLogf(observability.Printf(logger, zapcore.DebugLevel)))
	}
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, ctxOpts...)

	s := &cdpSession{
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		logger:      logger,
	}

	timeout := cfg.LaunchTimeout
	if timeout <= 0 {
		timeout = defaultLaunchTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	// The first Run starts the browser. It must run on the tab context
	// itself, so the launch deadline is enforced from outside.
	launched := make(chan error, 1)
	go func() { launched <- chromedp.Run(tabCtx) }()

	var err error
	select {
	case err = <-launched:
	case <-timer.C:
		err = fmt.Errorf("browser did not start within %s", timeout)
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		_ = s.Close()
		return nil, &automation.LaunchError{Driver: config.DriverChromedp, Err: err}
	}

	logger.Info("Browser started.",
		zap.Bool("headless", cfg.Headless),
		zap.String("remote_url", cfg.RemoteURL))
	return s, nil
}

func (s *cdpSession) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := CombineContext(s.tabCtx, ctx)
	defer cancel()

	start := time.Now()
	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	s.logger.Info("Page loaded.", zap.String("url", url), zap.Duration("took", time.Since(start)))
	return nil
}

func (s *cdpSession) resolve(ctx context.Context, req resolveRequest) (resolveResponse, error) {
	var res resolveResponse
	expr, err := req.expression()
	if err != nil {
		return res, err
	}

	runCtx, cancel := CombineContext(s.tabCtx, ctx)
	defer cancel()

	err = chromedp.Run(runCtx, chromedp.Evaluate(expr, &res, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithReturnByValue(true).WithSilent(true)
	}))
	if err != nil {
		return res, fmt.Errorf("resolver %s: %w", req.Op, err)
	}
	return res, nil
}

func (s *cdpSession) Probe(ctx context.Context, sel automation.Selector) (automation.ElementState, error) {
	res, err := s.resolve(ctx, newRequest(opProbe, sel, 0))
	if err != nil {
		return automation.NoMatch, err
	}
	return res.state(), nil
}

func (s *cdpSession) Texts(ctx context.Context, sel automation.Selector) ([]string, error) {
	res, err := s.resolve(ctx, newRequest(opTexts, sel, 0))
	if err != nil {
		return nil, err
	}
	if err := res.check(sel, 0); err != nil {
		return nil, err
	}
	return res.Texts, nil
}

func (s *cdpSession) Activate(ctx context.Context, ref automation.ElementRef) error {
	res, err := s.resolve(ctx, newRequest(opActivate, ref.Selector, ref.Index))
	if err != nil {
		return err
	}
	return res.check(ref.Selector, ref.Index)
}

func (s *cdpSession) TypeText(ctx context.Context, ref automation.ElementRef, text string) error {
	res, err := s.resolve(ctx, newRequest(opFocus, ref.Selector, ref.Index))
	if err != nil {
		return err
	}
	if err := res.check(ref.Selector, ref.Index); err != nil {
		return err
	}

	runCtx, cancel := CombineContext(s.tabCtx, ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.KeyEvent(text)); err != nil {
		return fmt.Errorf("type into %s: %w", ref.Target, err)
	}
	return nil
}

// Close shuts the tab and, for locally launched browsers, the process.
func (s *cdpSession) Close() error {
	s.closeOnce.Do(func() {
		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(s.tabCtx) }()

		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.closeErr = fmt.Errorf("close browser: %w", err)
			}
		case <-time.After(shutdownGracePeriod):
			s.closeErr = fmt.Errorf("browser did not exit within %s", shutdownGracePeriod)
		}
		s.tabCancel()
		s.allocCancel()
		s.logger.Debug("Browser session closed.", zap.Error(s.closeErr))
	})
	return s.closeErr
}
