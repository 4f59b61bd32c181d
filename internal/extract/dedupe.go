// internal/extract/dedupe.go
package extract

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/utils"
	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// Validator applies the content-validity heuristic: a record is worth
// keeping when it has non-trivial text, a link, or an image.
type Validator struct {
	minText int
}

// NewValidator builds a validator requiring more than minTextLength
// trimmed characters of text.
func NewValidator(minTextLength int) *Validator {
	return &Validator{minText: minTextLength}
}

// Valid reports whether the flattened candidate carries real content.
func (v *Validator) Valid(flat *FlatRecord) bool {
	if flat == nil {
		return false
	}
	if utf8.RuneCountInString(strings.TrimSpace(flat.Text())) > v.minText {
		return true
	}
	return len(flat.Links) > 0 || len(flat.Images) > 0
}

// DefaultSignatureValueLength bounds how many runes of each field value
// feed the dedup signature.
const DefaultSignatureValueLength = 50

// Deduper drops records whose signature was already seen, keeping the
// first occurrence. Signatures hash the sorted key:value pairs of all
// non-internal fields, with values NFC-normalized and truncated; long
// near-duplicates sharing a truncated prefix therefore collide, which is
// the intended trade-off.
type Deduper struct {
	maxValueLen int
	seen        map[uint64]struct{}
}

// NewDeduper builds a deduper truncating signature values at
// signatureValueLength runes (the default when non-positive).
func NewDeduper(signatureValueLength int) *Deduper {
	if signatureValueLength <= 0 {
		signatureValueLength = DefaultSignatureValueLength
	}
	return &Deduper{
		maxValueLen: signatureValueLength,
		seen:        make(map[uint64]struct{}),
	}
}

// Signature computes the record's dedup signature.
func (d *Deduper) Signature(rec types.Record) uint64 {
	keys := make([]string, 0, len(rec.Fields))
	for key := range rec.Fields {
		if strings.HasPrefix(key, "_") {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	digest := xxhash.New()
	for _, key := range keys {
		val := utils.TruncateRunes(norm.NFC.String(rec.Fields[key]), d.maxValueLen)
		digest.WriteString(key)
		digest.WriteString(":")
		digest.WriteString(val)
		digest.WriteString("\x1f")
	}
	return digest.Sum64()
}

// Add records the signature and reports whether the record is new.
func (d *Deduper) Add(rec types.Record) bool {
	sig := d.Signature(rec)
	if _, dup := d.seen[sig]; dup {
		return false
	}
	d.seen[sig] = struct{}{}
	return true
}

// Len returns how many distinct signatures have been kept.
func (d *Deduper) Len() int {
	return len(d.seen)
}
