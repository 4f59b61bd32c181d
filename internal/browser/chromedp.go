// internal/browser/chromedp.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/config"
)

// liveQueryScript walks the live document for elements containing the
// sample text, bounded by the length ratio, and reports the shape the
// selector learner needs. Capped so pathological pages cannot flood the
// CDP channel.
const liveQueryScript = `(() => {
	const sample = %q;
	const maxLen = sample.length * %g;
	const hits = [];
	const walker = document.createTreeWalker(document.body, NodeFilter.SHOW_ELEMENT);
	let el;
	while ((el = walker.nextNode())) {
		const text = (el.textContent || '').trim();
		if (!text || !text.includes(sample)) continue;
		if (maxLen > 0 && text.length > maxLen) continue;
		hits.push({
			tag: el.tagName.toLowerCase(),
			classList: Array.from(el.classList),
			href: el.getAttribute('href') || '',
			src: el.getAttribute('src') || ''
		});
		if (hits.length >= 25) break;
	}
	return hits;
})()`

// ChromeDriver implements Driver on a chromedp session.
type ChromeDriver struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	cfg         *config.BrowserConfig
	stats       Stats
	navigated   bool
	mu          sync.Mutex
}

var _ Driver = (*ChromeDriver)(nil)

// NewChromeDriver starts a headless Chrome session configured by cfg.
// A nil cfg selects the defaults.
func NewChromeDriver(cfg *config.BrowserConfig) (*ChromeDriver, error) {
	if cfg == nil {
		cfg = defaultConfig()
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox,
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	d := &ChromeDriver{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		cfg:         cfg,
	}

	width, height := cfg.ViewportWidth, cfg.ViewportHeight
	if width <= 0 {
		width = 1920
	}
	if height <= 0 {
		height = 1080
	}
	if err := chromedp.Run(d.ctx, chromedp.EmulateViewport(int64(width), int64(height))); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}
	return d, nil
}

// Navigate loads the URL and waits for the body to be ready.
func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := d.callContext(ctx, d.cfg.Timeout.Std())
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.stats.Errors++
		d.navigated = false
		return fmt.Errorf("navigation failed: %w", err)
	}
	d.navigated = true
	d.stats.PagesLoaded++
	return nil
}

// FetchHTML serializes the current document. It refuses to run before a
// successful navigation.
func (d *ChromeDriver) FetchHTML(ctx context.Context, timeout time.Duration) (string, error) {
	d.mu.Lock()
	navigated := d.navigated
	d.mu.Unlock()
	if !navigated {
		return "", fmt.Errorf("cannot fetch HTML: no page has been loaded")
	}

	runCtx, cancel := d.callContext(ctx, timeout)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html)); err != nil {
		d.mu.Lock()
		d.stats.Errors++
		if runCtx.Err() != nil {
			d.stats.Timeouts++
		}
		d.mu.Unlock()
		return "", fmt.Errorf("failed to fetch HTML: %w", err)
	}
	return html, nil
}

// QueryLiveDOM evaluates the containment query against the live page.
func (d *ChromeDriver) QueryLiveDOM(ctx context.Context, sample string, maxLengthRatio float64) ([]LiveElement, error) {
	d.mu.Lock()
	navigated := d.navigated
	d.stats.Queries++
	d.mu.Unlock()
	if !navigated {
		return nil, fmt.Errorf("cannot query live DOM: no page has been loaded")
	}
	if sample == "" {
		return nil, nil
	}

	runCtx, cancel := d.callContext(ctx, d.cfg.Timeout.Std())
	defer cancel()

	script := fmt.Sprintf(liveQueryScript, sample, maxLengthRatio)
	var elements []LiveElement
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &elements)); err != nil {
		d.mu.Lock()
		d.stats.Errors++
		d.mu.Unlock()
		return nil, fmt.Errorf("live DOM query failed: %w", err)
	}
	return elements, nil
}

// Stats returns a copy of the driver's counters.
func (d *ChromeDriver) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Close tears down the chromedp session and its allocator.
func (d *ChromeDriver) Close() error {
	if d.cancel != nil {
		d.cancel()
	}
	if d.allocCancel != nil {
		d.allocCancel()
	}
	return nil
}

// callContext derives a per-call context: the caller's deadline when one
// is set, bounded by the given timeout so one hung CDP call cannot stall
// everything behind it.
func (d *ChromeDriver) callContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	runCtx := d.ctx
	if ctx != nil {
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining < timeout {
				timeout = remaining
			}
		}
	}
	return context.WithTimeout(runCtx, timeout)
}
