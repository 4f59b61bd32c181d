// internal/pipeline/transform.go

// Package pipeline post-processes extracted records before they reach an
// output writer. Transform rules are declared in the output section of a
// scrape config and run in order; each rule receives the previous rule's
// result. Rules operate on field values as strings because extraction
// produces strings; parse_float and parse_int normalize numeric text
// rather than changing the value's type.
package pipeline

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/AkaashThawani/karyakarta-agent-sub000/internal/config"
)

// defaultDateLayout is assumed by parse_date when no format is configured.
const defaultDateLayout = "2006-01-02"

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	numberRe     = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

// ApplyRules runs the rules in order, feeding each result into the next
// rule. The original value is returned unchanged when rules is empty.
func ApplyRules(value string, rules []config.TransformRule) (string, error) {
	result := value
	for i, rule := range rules {
		var err error
		result, err = ApplyRule(result, rule)
		if err != nil {
			return "", fmt.Errorf("rule %d (%s): %w", i, rule.Type, err)
		}
	}
	return result, nil
}

// ApplyRule applies a single transformation rule to a value.
func ApplyRule(value string, rule config.TransformRule) (string, error) {
	switch rule.Type {
	case "trim":
		return strings.TrimSpace(value), nil

	case "normalize_spaces":
		return whitespaceRe.ReplaceAllString(strings.TrimSpace(value), " "), nil

	case "lowercase":
		return strings.ToLower(value), nil

	case "uppercase":
		return strings.ToUpper(value), nil

	case "title":
		// cases.Caser carries internal state, so build one per call.
		return cases.Title(language.English).String(value), nil

	case "remove_html":
		return html.UnescapeString(htmlTagRe.ReplaceAllString(value, "")), nil

	case "extract_number":
		match := numberRe.FindString(strings.ReplaceAll(value, ",", ""))
		if match == "" {
			return "0", nil
		}
		return match, nil

	case "parse_float":
		cleaned := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return "", fmt.Errorf("parse_float %q: %w", value, err)
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil

	case "parse_int":
		cleaned := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
		n, err := strconv.Atoi(cleaned)
		if err != nil {
			return "", fmt.Errorf("parse_int %q: %w", value, err)
		}
		return strconv.Itoa(n), nil

	case "parse_date":
		layout := rule.Format
		if layout == "" {
			layout = defaultDateLayout
		}
		t, err := time.Parse(layout, strings.TrimSpace(value))
		if err != nil {
			return "", fmt.Errorf("parse_date %q: %w", value, err)
		}
		if rule.Value != "" {
			return t.Format(rule.Value), nil
		}
		return strings.TrimSpace(value), nil

	case "regex":
		if rule.Pattern == "" {
			return "", fmt.Errorf("regex rule requires a pattern")
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return "", fmt.Errorf("invalid pattern %q: %w", rule.Pattern, err)
		}
		return re.ReplaceAllString(value, rule.Replacement), nil

	case "replace":
		if rule.Pattern == "" {
			return "", fmt.Errorf("replace rule requires a pattern")
		}
		return strings.ReplaceAll(value, rule.Pattern, rule.Replacement), nil

	case "prefix":
		if rule.Value == "" {
			return "", fmt.Errorf("prefix rule requires a value")
		}
		return rule.Value + value, nil

	case "suffix":
		if rule.Value == "" {
			return "", fmt.Errorf("suffix rule requires a value")
		}
		return value + rule.Value, nil

	default:
		return "", fmt.Errorf("unknown transform type %q", rule.Type)
	}
}

// ValidateRules checks rule configuration without applying anything, so
// a bad config fails at load time instead of on the first record.
func ValidateRules(rules []config.TransformRule) error {
	for i, rule := range rules {
		switch rule.Type {
		case "trim", "normalize_spaces", "lowercase", "uppercase", "title",
			"remove_html", "extract_number", "parse_float", "parse_int":
			// No parameters.
		case "regex":
			if rule.Pattern == "" {
				return fmt.Errorf("rule %d: regex requires a pattern", i)
			}
			if _, err := regexp.Compile(rule.Pattern); err != nil {
				return fmt.Errorf("rule %d: invalid pattern %q: %w", i, rule.Pattern, err)
			}
		case "replace":
			if rule.Pattern == "" {
				return fmt.Errorf("rule %d: replace requires a pattern", i)
			}
		case "prefix", "suffix":
			if rule.Value == "" {
				return fmt.Errorf("rule %d: %s requires a value", i, rule.Type)
			}
		case "parse_date":
			if rule.Format != "" {
				// A layout parses itself when it is well formed.
				if _, err := time.Parse(rule.Format, rule.Format); err != nil {
					return fmt.Errorf("rule %d: invalid date format %q: %w", i, rule.Format, err)
				}
			}
		default:
			return fmt.Errorf("rule %d: unknown transform type %q", i, rule.Type)
		}
	}
	return nil
}
