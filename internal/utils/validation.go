// Package utils provides selector and output-format validation for the
// extraction engine.
package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// Limits on selectors accepted from configuration or the selector store.
const (
	// MaxSelectorLength bounds a whole selector expression.
	MaxSelectorLength = 1000

	// MaxNestingDepth bounds how many combinator-separated steps a
	// single selector group may chain.
	MaxNestingDepth = 20
)

var (
	// compoundSegment matches one step of a selector: an optional tag
	// or *, then any run of .class/#id parts, attribute brackets, and
	// pseudo classes or elements, e.g. div.card[data-id]:nth-child(2).
	compoundSegment = regexp.MustCompile(
		`^(?:[a-zA-Z][a-zA-Z0-9-]*|\*)?` +
			`(?:[.#][a-zA-Z_-][a-zA-Z0-9_-]*)*` +
			`(?:\[[a-zA-Z][a-zA-Z0-9-]*(?:[~|^$*]?=[^\]]*)?\])*` +
			`(?:::?[a-zA-Z-]+(?:\([^)]*\))?)*$`)

	// combinatorSplit cuts a selector group into steps at child,
	// sibling, and descendant combinators.
	combinatorSplit = regexp.MustCompile(`\s*[>+~]\s*|\s+`)

	cssExpressionPattern = regexp.MustCompile(`expression\s*\(`)
)

// ValidationError describes why a selector was rejected.
type ValidationError struct {
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %q", e.Message, e.Value)
	}
	return e.Message
}

// ValidateSelector checks that a CSS selector is syntactically sound
// and free of dangerous content. Learned selectors pass through here
// before they are persisted or served; the cache file is plain SQLite
// anyone can edit.
func ValidateSelector(selector string) *ValidationError {
	sel := strings.TrimSpace(selector)
	if sel == "" {
		return &ValidationError{Message: "selector is required", Code: "REQUIRED"}
	}
	if len(sel) > MaxSelectorLength {
		return &ValidationError{
			Message: fmt.Sprintf("selector exceeds %d characters", MaxSelectorLength),
			Code:    "SELECTOR_TOO_LONG",
		}
	}
	if strings.ContainsAny(sel, "@{};\\`") {
		return &ValidationError{
			Message: "selector contains CSS metacharacters (@, {, }, ;, \\, `)",
			Code:    "INVALID_CHARACTERS",
		}
	}
	if strings.Contains(sel, "<") {
		return &ValidationError{
			Message: "selector contains HTML-like content",
			Code:    "INVALID_HTML_CONTENT",
		}
	}

	lower := strings.ToLower(sel)
	if strings.Contains(lower, "javascript:") {
		return &ValidationError{
			Message: "selector contains a javascript: protocol",
			Code:    "DANGEROUS_PROTOCOL",
		}
	}
	if cssExpressionPattern.MatchString(lower) {
		return &ValidationError{
			Message: "selector contains a CSS expression",
			Code:    "CSS_EXPRESSION",
		}
	}

	for _, group := range strings.Split(sel, ",") {
		if verr := validateGroup(group); verr != nil {
			return verr
		}
	}
	return nil
}

// validateGroup checks one comma-separated selector group step by step.
func validateGroup(group string) *ValidationError {
	group = strings.TrimSpace(group)
	if group == "" {
		return &ValidationError{Message: "selector group is empty", Code: "INVALID_SYNTAX"}
	}

	steps := combinatorSplit.Split(group, -1)
	if len(steps)-1 > MaxNestingDepth {
		return &ValidationError{
			Value:   group,
			Message: fmt.Sprintf("selector nests deeper than %d levels", MaxNestingDepth),
			Code:    "EXCESSIVE_NESTING",
		}
	}
	for _, step := range steps {
		if step == "" || !compoundSegment.MatchString(step) {
			return &ValidationError{
				Value:   step,
				Message: "selector step is not valid CSS",
				Code:    "INVALID_SYNTAX",
			}
		}
	}
	return nil
}

// IsValidOutputFormat checks whether the output format is supported.
// The set matches the writers internal/output can build.
func IsValidOutputFormat(format string) bool {
	switch strings.ToLower(format) {
	case "json", "jsonl", "csv", "tsv", "xml", "yaml", "excel",
		"sqlite", "postgresql", "mysql", "mongodb":
		return true
	default:
		return false
	}
}
