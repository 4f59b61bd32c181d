// internal/engine/stream.go
package engine

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/config"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/extract"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/monitoring"
	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/utils"
	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// Sweep tuning for direct construction; config normally overrides.
const (
	DefaultSweepBudget  = 60 * time.Second
	DefaultPollInterval = time.Second
	DefaultBatchSize    = 5
)

// sweepBatch is one producer emission: up to BatchSize records from a
// single category, in that producer's document order.
type sweepBatch struct {
	category string
	records  []types.Record
}

// sweepProducer names one structural category and how to collect it.
type sweepProducer struct {
	category string
	collect  func(doc *goquery.Document) []types.Record
}

// Sweeper runs the coarse "extract everything" mode: one producer per
// structural category feeding a shared channel, drained by a single
// polling consumer under an outer budget.
type Sweeper struct {
	cfg     config.SweepConfig
	sigLen  int
	metrics *monitoring.Manager
	logger  utils.Logger
	clock   Clock
}

// SweeperOptions wires a sweeper's collaborators.
type SweeperOptions struct {
	Sweep      config.SweepConfig
	Extraction config.ExtractionConfig
	Metrics    *monitoring.Manager
	Logger     utils.Logger
	Clock      Clock
}

func NewSweeper(opts SweeperOptions) *Sweeper {
	logger := opts.Logger
	if logger == nil {
		logger = utils.NopLogger()
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}
	return &Sweeper{
		cfg:     opts.Sweep,
		sigLen:  opts.Extraction.SignatureValueLength,
		metrics: opts.Metrics,
		logger:  logger,
		clock:   clock,
	}
}

// Run sweeps every structural category of the document. Cancellation
// and budget expiry are cooperative: producers stop at the next send,
// and batches already emitted stay intact. Cross-producer interleaving
// is unspecified; per-producer order is preserved.
func (s *Sweeper) Run(ctx context.Context, html string, limit int, sink Sink) (*types.Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeParsingError, "failed to parse document for sweep")
	}

	start := s.clock.Now()
	budget := s.cfg.Budget.Std()
	if budget <= 0 {
		budget = DefaultSweepBudget
	}
	deadline := start.Add(budget)

	poll := s.cfg.PollInterval.Std()
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	producers := sweepProducers()
	out := make(chan sweepBatch, len(producers))

	sweepCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(sweepCtx)
	for _, p := range producers {
		p := p
		g.Go(func() error {
			return s.produce(gctx, doc, p, out)
		})
	}
	go func() {
		// Producers only stop via completion or cancellation; either
		// way the channel must close so the consumer can drain out.
		if err := g.Wait(); err != nil && err != context.Canceled {
			s.logger.Debugf("sweep producer stopped: %v", err)
		}
		close(out)
	}()

	collector := NewCollector()
	deduper := extract.NewDeduper(s.sigLen)
	run := &runState{}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

consuming:
	for {
		if s.clock.Now().After(deadline) {
			run.timedOut = true
			s.metrics.RecordTimeout("sweep")
			cancel()
			break consuming
		}

		select {
		case batch, ok := <-out:
			if !ok {
				break consuming
			}
			s.metrics.RecordSweepBatch(batch.category, len(batch.records))
			for _, rec := range batch.records {
				if !deduper.Add(rec) {
					run.stats.RecordsDropped++
					s.metrics.RecordDrop("duplicate")
					continue
				}
				collector.Append(rec)
				if sink != nil {
					sink.Append(rec)
				}
				run.count++
				if limit > 0 && run.count >= limit {
					run.limitHit = true
					cancel()
					break consuming
				}
			}

		case <-ticker.C:
			// Wakes the loop so the deadline check above runs even
			// when no batches are arriving.

		case <-ctx.Done():
			run.timedOut = true
			s.metrics.RecordTimeout("sweep")
			break consuming
		}
	}

	run.stats.Elapsed = s.clock.Now().Sub(start)
	s.metrics.RecordSweepDuration(run.stats.Elapsed)
	s.logger.Infof("sweep finished: %d records, %d duplicates dropped in %s",
		run.count, run.stats.RecordsDropped, utils.FormatDuration(run.stats.Elapsed))

	return &types.Result{
		Records:  collector.Records(),
		Partial:  run.timedOut,
		TimedOut: run.timedOut,
		Stats:    run.stats,
	}, nil
}

// produce collects one category and pushes it in batches, stopping at
// the first cancelled send.
func (s *Sweeper) produce(ctx context.Context, doc *goquery.Document, p sweepProducer, out chan<- sweepBatch) error {
	records := p.collect(doc)

	size := s.cfg.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	for begin := 0; begin < len(records); begin += size {
		end := begin + size
		if end > len(records) {
			end = len(records)
		}
		select {
		case out <- sweepBatch{category: p.category, records: records[begin:end]}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// sweepProducers enumerates the structural categories. Each collector
// reads the document only, so producers can run concurrently over the
// same goquery tree.
func sweepProducers() []sweepProducer {
	return []sweepProducer{
		{category: "tables", collect: collectTables},
		{category: "lists", collect: collectLists},
		{category: "cards", collect: collectCards},
		{category: "links", collect: collectLinks},
		{category: "images", collect: collectImages},
		{category: "forms", collect: collectForms},
		{category: "buttons", collect: collectButtons},
		{category: "containers", collect: collectContainers},
		{category: "headings", collect: collectHeadings},
		{category: "paragraphs", collect: collectParagraphs},
		{category: "attributes", collect: collectAttributes},
		{category: "metadata", collect: collectMetadata},
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func collectTables(doc *goquery.Document) []types.Record {
	var records []types.Record

	doc.Find("table").Each(func(ti int, table *goquery.Selection) {
		var headers []string
		table.Find("thead tr th, tr:first-child th").Each(func(_ int, s *goquery.Selection) {
			headers = append(headers, collapse(s.Text()))
		})

		var rows *goquery.Selection
		if table.Find("tbody").Length() > 0 {
			rows = table.Find("tbody tr")
		} else if table.Find("tr th").Length() > 0 {
			rows = table.Find("tr").Slice(1, goquery.ToEnd)
		} else {
			rows = table.Find("tr")
		}

		rows.Each(func(_ int, row *goquery.Selection) {
			fields := map[string]string{
				"type":        "table_row",
				"table_index": strconv.Itoa(ti),
			}
			cells := 0
			row.Find("td, th").Each(func(ci int, cell *goquery.Selection) {
				text := collapse(cell.Text())
				if text == "" {
					return
				}
				key := "col_" + strconv.Itoa(ci)
				if ci < len(headers) && headers[ci] != "" {
					key = headers[ci]
				}
				fields[key] = text
				cells++
			})
			if cells > 0 {
				records = append(records, types.Record{Fields: fields})
			}
		})
	})
	return records
}

func collectLists(doc *goquery.Document) []types.Record {
	var records []types.Record

	doc.Find("ul, ol").Each(func(_ int, list *goquery.Selection) {
		listType := goquery.NodeName(list)
		list.ChildrenFiltered("li").Each(func(li int, item *goquery.Selection) {
			text := collapse(item.Text())
			if text == "" {
				return
			}
			records = append(records, types.Record{Fields: map[string]string{
				"type":      "list_item",
				"list_type": listType,
				"position":  strconv.Itoa(li),
				"text":      text,
			}})
		})
	})
	return records
}

func collectCards(doc *goquery.Document) []types.Record {
	var records []types.Record

	doc.Find("article, [class*='card'], [class*='product']").Each(func(_ int, card *goquery.Selection) {
		fields := map[string]string{"type": "card"}

		if title := collapse(card.Find("h1, h2, h3, h4, h5, h6").First().Text()); title != "" {
			fields["title"] = title
		}
		if href, ok := card.Find("a[href]").First().Attr("href"); ok && href != "" {
			fields["url"] = href
		}
		if src, ok := card.Find("img[src]").First().Attr("src"); ok && src != "" {
			fields["image"] = src
		}
		if text := collapse(card.Text()); text != "" {
			fields["text"] = utils.TruncateRunes(text, 200)
		}

		if len(fields) > 1 {
			records = append(records, types.Record{Fields: fields})
		}
	})
	return records
}

func collectLinks(doc *goquery.Document) []types.Record {
	var records []types.Record

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href == "" {
			return
		}
		fields := map[string]string{
			"type": "link",
			"href": href,
		}
		if text := collapse(s.Text()); text != "" {
			fields["text"] = text
		}
		records = append(records, types.Record{Fields: fields})
	})
	return records
}

func collectImages(doc *goquery.Document) []types.Record {
	var records []types.Record

	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if src == "" {
			return
		}
		fields := map[string]string{
			"type": "image",
			"src":  src,
		}
		if alt, ok := s.Attr("alt"); ok && alt != "" {
			fields["alt"] = alt
		}
		records = append(records, types.Record{Fields: fields})
	})
	return records
}

func collectForms(doc *goquery.Document) []types.Record {
	var records []types.Record

	doc.Find("form").Each(func(_ int, form *goquery.Selection) {
		fields := map[string]string{"type": "form"}

		if action, ok := form.Attr("action"); ok && action != "" {
			fields["action"] = action
		}
		method := "get"
		if m, ok := form.Attr("method"); ok && m != "" {
			method = strings.ToLower(m)
		}
		fields["method"] = method

		var inputs []string
		form.Find("input[name], select[name], textarea[name]").Each(func(_ int, in *goquery.Selection) {
			if name, ok := in.Attr("name"); ok {
				inputs = append(inputs, name)
			}
		})
		if len(inputs) > 0 {
			fields["inputs"] = strings.Join(inputs, ", ")
		}

		records = append(records, types.Record{Fields: fields})
	})
	return records
}

func collectButtons(doc *goquery.Document) []types.Record {
	var records []types.Record

	doc.Find("button, input[type='submit'], input[type='button']").Each(func(_ int, s *goquery.Selection) {
		text := collapse(s.Text())
		if text == "" {
			if v, ok := s.Attr("value"); ok {
				text = collapse(v)
			}
		}
		if text == "" {
			return
		}
		records = append(records, types.Record{Fields: map[string]string{
			"type": "button",
			"text": text,
		}})
	})
	return records
}

func collectContainers(doc *goquery.Document) []types.Record {
	var records []types.Record

	doc.Find("div, section").Each(func(_ int, s *goquery.Selection) {
		childCount := s.Children().Length()
		if childCount < 3 {
			return
		}
		fields := map[string]string{
			"type":        "container",
			"tag":         goquery.NodeName(s),
			"child_count": strconv.Itoa(childCount),
		}
		if class, ok := s.Attr("class"); ok && class != "" {
			fields["class"] = class
		}
		if text := collapse(s.Text()); text != "" {
			fields["text"] = utils.TruncateRunes(text, 200)
		}
		records = append(records, types.Record{Fields: fields})
	})
	return records
}

func collectHeadings(doc *goquery.Document) []types.Record {
	var records []types.Record

	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		text := collapse(s.Text())
		if text == "" {
			return
		}
		records = append(records, types.Record{Fields: map[string]string{
			"type":  "heading",
			"level": goquery.NodeName(s),
			"text":  text,
		}})
	})
	return records
}

func collectParagraphs(doc *goquery.Document) []types.Record {
	var records []types.Record

	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		text := collapse(s.Text())
		if text == "" {
			return
		}
		records = append(records, types.Record{Fields: map[string]string{
			"type": "paragraph",
			"text": text,
		}})
	})
	return records
}

func collectAttributes(doc *goquery.Document) []types.Record {
	var records []types.Record

	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		var fields map[string]string
		for _, attr := range s.Get(0).Attr {
			if !strings.HasPrefix(attr.Key, "data-") || attr.Val == "" {
				continue
			}
			if fields == nil {
				fields = map[string]string{
					"type": "attributed_element",
					"tag":  goquery.NodeName(s),
				}
			}
			fields[attr.Key] = attr.Val
		}
		if fields != nil {
			records = append(records, types.Record{Fields: fields})
		}
	})
	return records
}

func collectMetadata(doc *goquery.Document) []types.Record {
	var records []types.Record

	if title := collapse(doc.Find("title").First().Text()); title != "" {
		records = append(records, types.Record{Fields: map[string]string{
			"type":    "metadata",
			"name":    "title",
			"content": title,
		}})
	}

	doc.Find("meta[name], meta[property]").Each(func(_ int, s *goquery.Selection) {
		content, ok := s.Attr("content")
		if !ok || content == "" {
			return
		}
		name, ok := s.Attr("name")
		if !ok {
			name, _ = s.Attr("property")
		}
		if name == "" {
			return
		}
		records = append(records, types.Record{Fields: map[string]string{
			"type":    "metadata",
			"name":    name,
			"content": content,
		}})
	})
	return records
}
