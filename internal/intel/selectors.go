// internal/intel/selectors.go
package intel

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/browser"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/config"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/extract"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/utils"
	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// genericClassTokens are class names too common to identify a field on
// their own but still better than a bare tag selector.
var genericClassTokens = []string{"title", "heading", "text", "content", "value"}

// SelectorCache resolves and learns per-domain CSS selectors. A lookup
// miss of any kind (unknown domain, stale entry, uncovered fields,
// store failure) returns nil so callers fall back to full discovery
// without branching on error causes.
type SelectorCache struct {
	store   Store
	cfg     config.SelectorCacheConfig
	limiter *utils.RateLimiter
	logger  utils.Logger
	clock   func() time.Time
}

func NewSelectorCache(store Store, cfg config.SelectorCacheConfig, logger utils.Logger) *SelectorCache {
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &SelectorCache{
		store:   store,
		cfg:     cfg,
		limiter: utils.NewRateLimiterWithBurst(cfg.QueryRate, cfg.QueryBurst),
		logger:  logger,
		clock:   time.Now,
	}
}

// Lookup returns the cached selectors for a domain when they are fresh
// and cover every requested field. Any other condition returns nil.
func (c *SelectorCache) Lookup(ctx context.Context, domain string, fields []string) map[string]string {
	key := utils.NormalizeDomain(domain)
	if key == "" {
		return nil
	}

	entry, err := c.store.GetSelectors(ctx, key)
	if err != nil {
		c.logger.Warnf("selector lookup for %s failed: %v", key, err)
		return nil
	}
	if entry == nil {
		return nil
	}
	if entry.Stale(c.cfg.TTL.Std(), c.clock()) {
		c.logger.Debugf("selector cache for %s is stale, ignoring", key)
		return nil
	}
	if !entry.Covers(fields) {
		c.logger.Debugf("selector cache for %s does not cover requested fields", key)
		return nil
	}
	// The store is a plain SQLite file; entries written by other tools
	// or by hand must not reach goquery unchecked.
	for field, sel := range entry.Selectors {
		if verr := utils.ValidateSelector(sel); verr != nil {
			c.logger.Warnf("selector cache for %s has an unusable %s selector: %v", key, field, verr)
			return nil
		}
	}
	return entry.Selectors
}

// FastPath applies cached selectors to a static document and builds
// records aligned by match index. It returns nil whenever the selectors
// produce nothing usable, signalling the caller to run full discovery.
func (c *SelectorCache) FastPath(html string, selectors map[string]string, fields []string, limit int, sentinel string) []types.Record {
	if len(selectors) == 0 || len(fields) == 0 {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	// One selection per field, values aligned by match index.
	columns := make(map[string][]string, len(fields))
	rows := 0
	for _, field := range fields {
		sel, ok := selectors[field]
		if !ok || sel == "" {
			continue
		}
		var values []string
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			values = append(values, strings.TrimSpace(s.Text()))
		})
		if len(values) > rows {
			rows = len(values)
		}
		columns[field] = values
	}
	if rows == 0 {
		return nil
	}
	if limit > 0 && rows > limit {
		rows = limit
	}

	deduper := extract.NewDeduper(0)
	records := make([]types.Record, 0, rows)
	for i := 0; i < rows; i++ {
		rec := types.Record{Fields: make(map[string]string, len(fields))}
		populated := false
		for _, field := range fields {
			values := columns[field]
			if i < len(values) && values[i] != "" {
				rec.Fields[field] = values[i]
				populated = true
			} else {
				rec.Fields[field] = sentinel
			}
		}
		if !populated {
			continue
		}
		if deduper.Add(rec) {
			records = append(records, rec)
		}
	}
	if len(records) == 0 {
		return nil
	}
	return records
}

// Learn queries the live page for the extracted values and distills the
// most frequent element shape per field into a CSS selector, then
// merges the result into the domain's cache entry.
func (c *SelectorCache) Learn(ctx context.Context, driver browser.Driver, domain string, fields []string, records []types.Record) error {
	key := utils.NormalizeDomain(domain)
	if key == "" || driver == nil || len(records) == 0 {
		return nil
	}

	learned := make(map[string]string, len(fields))
	for _, field := range fields {
		samples := c.fieldSamples(records, field)
		if len(samples) == 0 {
			continue
		}

		counts := make(map[string]int)
		for _, sample := range samples {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
			elements, err := driver.QueryLiveDOM(ctx, sample, c.cfg.MaxLengthRatio)
			if err != nil {
				c.logger.Debugf("live query for field %s failed: %v", field, err)
				continue
			}
			for _, el := range elements {
				if sel := buildSelector(el, field); sel != "" {
					counts[sel]++
				}
			}
		}
		if sel := mostFrequent(counts); sel != "" {
			if verr := utils.ValidateSelector(sel); verr != nil {
				c.logger.Warnf("discarding unusable selector %q for field %s: %v", sel, field, verr)
				continue
			}
			learned[field] = sel
		}
	}
	if len(learned) == 0 {
		return nil
	}

	entry, err := c.store.GetSelectors(ctx, key)
	if err != nil {
		return err
	}
	now := c.clock()
	if entry == nil {
		entry = &types.SelectorEntry{Domain: key, Selectors: make(map[string]string)}
	}
	if entry.Selectors == nil {
		entry.Selectors = make(map[string]string)
	}
	for field, sel := range learned {
		entry.Selectors[field] = sel
	}
	entry.Fields = mergeFields(entry.Fields, fields)
	entry.LearnedAt = now
	entry.UseCount++

	if err := c.store.PutSelectors(ctx, entry); err != nil {
		return err
	}
	c.logger.Infof("learned %d selectors for %s", len(learned), key)
	return nil
}

// fieldSamples pulls up to SampleCount usable values for a field from
// the leading records. Sentinels and blanks carry no signal.
func (c *SelectorCache) fieldSamples(records []types.Record, field string) []string {
	max := c.cfg.SampleCount
	if max <= 0 {
		max = 3
	}
	scan := len(records)
	if scan > 3 {
		scan = 3
	}

	var samples []string
	for _, rec := range records[:scan] {
		v := strings.TrimSpace(rec.Get(field))
		if v == "" || v == extract.DefaultSentinel {
			continue
		}
		samples = append(samples, v)
		if len(samples) >= max {
			break
		}
	}
	return samples
}

// buildSelector turns a live element shape into the most specific
// selector available: a class token naming the field beats a generic
// token, which beats tag.firstClass, which beats the bare tag.
func buildSelector(el browser.LiveElement, field string) string {
	tag := strings.ToLower(strings.TrimSpace(el.Tag))
	if tag == "" {
		return ""
	}

	lowField := strings.ToLower(field)
	for _, class := range el.Classes {
		if strings.Contains(strings.ToLower(class), lowField) {
			return "." + class
		}
	}
	for _, class := range el.Classes {
		lower := strings.ToLower(class)
		for _, tok := range genericClassTokens {
			if strings.Contains(lower, tok) {
				return tag + "." + class
			}
		}
	}
	if len(el.Classes) > 0 {
		return tag + "." + el.Classes[0]
	}
	return tag
}

// mostFrequent picks the selector seen most often, breaking ties
// lexicographically so learning is deterministic.
func mostFrequent(counts map[string]int) string {
	best := ""
	bestCount := 0
	for sel, n := range counts {
		if n > bestCount || (n == bestCount && (best == "" || sel < best)) {
			best = sel
			bestCount = n
		}
	}
	return best
}

func mergeFields(existing, requested []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(requested))
	var out []string
	for _, f := range existing {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	for _, f := range requested {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
