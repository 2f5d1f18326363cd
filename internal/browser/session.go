// internal/browser/session.go
package browser

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/flightsearch-cli/internal/automation"
	"github.com/xkilldash9x/flightsearch-cli/internal/config"
)

// Session is one browser with one page, owned by a single run.
type Session interface {
	automation.Page
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error
	// Close releases the page and the browser. It is safe to call more
	// than once; only the first call does any work.
	Close() error
}

// Open launches (or attaches to) a browser with the configured driver.
// Launch failures are reported as *automation.LaunchError.
func Open(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		s   Session
		err error
	)
	switch cfg.Driver {
	case config.DriverChromedp, "":
		s, err = openChromedp(ctx, cfg, logger.Named("chromedp"))
	case config.DriverPlaywright:
		s, err = openPlaywright(ctx, cfg, logger.Named("playwright"))
	default:
		err = &automation.LaunchError{Driver: cfg.Driver, Err: fmt.Errorf("unsupported driver")}
	}
	if err != nil {
		// Avoid handing back a typed nil inside the interface.
		return nil, err
	}
	return s, nil
}

// CombineContext returns a context that carries primary's values and is
// cancelled when either primary or op ends. The driver contexts hold the
// connection in their values while op carries the caller's deadline.
func CombineContext(primary, op context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(primary)
	stop := context.AfterFunc(op, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
