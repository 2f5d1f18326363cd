// internal/browser/playwright.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/flightsearch-cli/internal/automation"
	"github.com/xkilldash9x/flightsearch-cli/internal/config"
)

const playwrightInstallTimeout = 5 * time.Minute

// pwSession drives one Chromium page through the playwright driver.
type pwSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	logger  *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

var _ Session = (*pwSession)(nil)

// LaunchArgs returns the Chromium arguments for a playwright launch.
func LaunchArgs(cfg config.BrowserConfig) []string {
	args := []string{
		"--disable-gpu",
		"--no-sandbox",
		"--disable-dev-shm-usage",
		"--disable-blink-features=AutomationControlled",
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		args = append(args, fmt.Sprintf("--window-size=%d,%d", cfg.WindowWidth, cfg.WindowHeight))
	}
	return append(args, cfg.Args...)
}

func openPlaywright(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*pwSession, error) {
	fail := func(err error) (*pwSession, error) {
		return nil, &automation.LaunchError{Driver: config.DriverPlaywright, Err: err}
	}

	if cfg.InstallDrivers {
		if err := ensureInstallation(ctx, logger); err != nil {
			return fail(err)
		}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	pw, err := playwright.Run()
	if err != nil {
		return fail(fmt.Errorf("start playwright driver: %w", err))
	}
	s := &pwSession{pw: pw, logger: logger}

	timeout := cfg.LaunchTimeout
	if timeout <= 0 {
		timeout = defaultLaunchTimeout
	}
	timeoutMs := float64(timeout.Milliseconds())

	if cfg.RemoteURL != "" {
		s.browser, err = pw.Chromium.ConnectOverCDP(cfg.RemoteURL, playwright.BrowserTypeConnectOverCDPOptions{
			Timeout: playwright.Float(timeoutMs),
		})
	} else {
		opts := playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(cfg.Headless),
			Args:     LaunchArgs(cfg),
			Timeout:  playwright.Float(timeoutMs),
		}
		if cfg.ExecPath != "" {
			opts.ExecutablePath = playwright.String(cfg.ExecPath)
		}
		s.browser, err = pw.Chromium.Launch(opts)
	}
	if err != nil {
		_ = s.Close()
		return fail(fmt.Errorf("launch chromium: %w", err))
	}

	pageOpts := playwright.BrowserNewPageOptions{
		Viewport: &playwright.Size{Width: cfg.WindowWidth, Height: cfg.WindowHeight},
	}
	if cfg.UserAgent != "" {
		pageOpts.UserAgent = playwright.String(cfg.UserAgent)
	}
	s.page, err = s.browser.NewPage(pageOpts)
	if err != nil {
		_ = s.Close()
		return fail(fmt.Errorf("open page: %w", err))
	}
	s.page.SetDefaultTimeout(timeoutMs)

	logger.Info("Browser started.",
		zap.String("browser_version", s.browser.Version()),
		zap.Bool("headless", cfg.Headless),
		zap.String("remote_url", cfg.RemoteURL))
	return s, nil
}

// ensureInstallation downloads the driver and Chromium if they are missing.
func ensureInstallation(ctx context.Context, logger *zap.Logger) error {
	logger.Info("Verifying Playwright browser installation...")
	installCtx, cancel := context.WithTimeout(ctx, playwrightInstallTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("install playwright browsers: %w", err)
		}
		return nil
	case <-installCtx.Done():
		return fmt.Errorf("waiting for playwright installation: %w", installCtx.Err())
	}
}

func (s *pwSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opts := playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateLoad}
	if deadline, ok := ctx.Deadline(); ok {
		opts.Timeout = playwright.Float(float64(time.Until(deadline).Milliseconds()))
	}

	start := time.Now()
	if _, err := s.page.Goto(url, opts); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	s.logger.Info("Page loaded.", zap.String("url", url), zap.Duration("took", time.Since(start)))
	return nil
}

// resolve evaluates the resolver. The playwright API takes no context, so
// cancellation is honoured between calls.
func (s *pwSession) resolve(ctx context.Context, req resolveRequest) (resolveResponse, error) {
	if err := ctx.Err(); err != nil {
		return resolveResponse{}, err
	}
	v, err := s.page.Evaluate(resolverJS, req.asArg())
	if err != nil {
		return resolveResponse{}, fmt.Errorf("resolver %s: %w", req.Op, err)
	}
	return decodeResponse(v)
}

func (s *pwSession) Probe(ctx context.Context, sel automation.Selector) (automation.ElementState, error) {
	res, err := s.resolve(ctx, newRequest(opProbe, sel, 0))
	if err != nil {
		return automation.NoMatch, err
	}
	return res.state(), nil
}

func (s *pwSession) Texts(ctx context.Context, sel automation.Selector) ([]string, error) {
	res, err := s.resolve(ctx, newRequest(opTexts, sel, 0))
	if err != nil {
		return nil, err
	}
	if err := res.check(sel, 0); err != nil {
		return nil, err
	}
	return res.Texts, nil
}

func (s *pwSession) Activate(ctx context.Context, ref automation.ElementRef) error {
	res, err := s.resolve(ctx, newRequest(opActivate, ref.Selector, ref.Index))
	if err != nil {
		return err
	}
	return res.check(ref.Selector, ref.Index)
}

func (s *pwSession) TypeText(ctx context.Context, ref automation.ElementRef, text string) error {
	res, err := s.resolve(ctx, newRequest(opFocus, ref.Selector, ref.Index))
	if err != nil {
		return err
	}
	if err := res.check(ref.Selector, ref.Index); err != nil {
		return err
	}
	if err := s.page.Keyboard().Type(text); err != nil {
		return fmt.Errorf("type into %s: %w", ref.Target, err)
	}
	return nil
}

func (s *pwSession) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close browser: %w", err))
			}
		}
		if s.pw != nil {
			if err := s.pw.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("stop playwright driver: %w", err))
			}
		}
		s.closeErr = errors.Join(errs...)
		s.logger.Debug("Browser session closed.", zap.Error(s.closeErr))
	})
	return s.closeErr
}
