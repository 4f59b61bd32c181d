// internal/browser/types.go

// Package browser adapts a headless Chrome session to the two
// capabilities the extraction engine consumes: fetching the serialized
// document of the current page, and querying the live DOM for elements
// containing a text sample. The engine only sees the Driver interface;
// chromedp stays behind it.
package browser

import (
	"context"
	"time"

	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/config"
)

// Driver is the browser surface the engine and the selector learner use.
type Driver interface {
	// Navigate loads a URL and waits for the document to become ready.
	Navigate(ctx context.Context, url string) error

	// FetchHTML returns the serialized document of the current page.
	// The timeout bounds this call alone, so one hang cannot stall the
	// whole pipeline.
	FetchHTML(ctx context.Context, timeout time.Duration) (string, error)

	// QueryLiveDOM returns elements whose text contains sample, skipping
	// containers whose text is more than maxLengthRatio times longer
	// than the sample.
	QueryLiveDOM(ctx context.Context, sample string, maxLengthRatio float64) ([]LiveElement, error)

	// Close releases the underlying browser.
	Close() error
}

// LiveElement is one live-DOM query hit. The JSON tags mirror what the
// in-page query script returns.
type LiveElement struct {
	Tag     string   `json:"tag"`
	Classes []string `json:"classList"`
	Href    string   `json:"href,omitempty"`
	Src     string   `json:"src,omitempty"`
}

// Stats counts what a driver did over its lifetime.
type Stats struct {
	PagesLoaded int `json:"pages_loaded"`
	Queries     int `json:"queries"`
	Errors      int `json:"errors"`
	Timeouts    int `json:"timeouts"`
}

// defaultConfig covers callers that enable the browser without tuning it.
func defaultConfig() *config.BrowserConfig {
	return &config.BrowserConfig{
		Enabled:        true,
		Headless:       true,
		Timeout:        config.Duration(30 * time.Second),
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		DisableImages:  true,
	}
}
