// internal/engine/sink.go
package engine

import (
	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// Sink receives each record the instant it validates, independent of
// whether the run later times out. The coordinator appends from a
// single goroutine.
type Sink interface {
	Append(rec types.Record)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(rec types.Record)

func (f SinkFunc) Append(rec types.Record) { f(rec) }

// Collector is the default sink, accumulating records in append order.
type Collector struct {
	records []types.Record
}

func NewCollector() *Collector {
	return &Collector{records: make([]types.Record, 0)}
}

func (c *Collector) Append(rec types.Record) {
	c.records = append(c.records, rec)
}

// Records returns the accumulated records. The slice is never nil.
func (c *Collector) Records() []types.Record {
	return c.records
}

func (c *Collector) Len() int {
	return len(c.records)
}
