package utils

import (
	"strings"
	"testing"
)

// TestValidateSelector tests CSS selector validation
func TestValidateSelector(t *testing.T) {
	testCases := []struct {
		selector string
		valid    bool
	}{
		// Valid selectors, including the shapes the learner emits
		{"div", true},
		{"span.price", true},
		{".product-card", true},
		{".item-name", true},
		{"#main", true},
		{"*", true},
		{"ul > li", true},
		{"table tr", true},
		{"a[href]", true},
		{"div.card, div.tile", true},
		{"li:nth-child(2)", true},

		// Invalid selectors
		{"", false},
		{"   ", false},
		{"div { color: red; }", false},
		{"<script>alert(1)</script>", false},
		{"javascript:alert(1)", false},
		{"div@media", false},
	}

	for _, tc := range testCases {
		t.Run(tc.selector, func(t *testing.T) {
			err := ValidateSelector(tc.selector)
			if tc.valid && err != nil {
				t.Errorf("ValidateSelector(%q) = %v, want nil", tc.selector, err)
			}
			if !tc.valid && err == nil {
				t.Errorf("ValidateSelector(%q) = nil, want error", tc.selector)
			}
		})
	}
}

func TestValidateSelector_Limits(t *testing.T) {
	long := "div" + strings.Repeat(".a", MaxSelectorLength)
	if err := ValidateSelector(long); err == nil {
		t.Error("oversized selector passed validation")
	}

	deep := strings.TrimSpace(strings.Repeat("div > ", MaxNestingDepth+2)) + " span"
	if err := ValidateSelector(deep); err == nil {
		t.Error("deeply nested selector passed validation")
	}
}

// TestIsValidOutputFormat tests output format validation
func TestIsValidOutputFormat(t *testing.T) {
	testCases := []struct {
		format   string
		expected bool
	}{
		{"json", true},
		{"jsonl", true},
		{"csv", true},
		{"tsv", true},
		{"xml", true},
		{"yaml", true},
		{"excel", true},
		{"sqlite", true},
		{"postgresql", true},
		{"mysql", true},
		{"mongodb", true},
		{"JSON", true},
		{"parquet", false},
		{"", false},
	}

	for _, tc := range testCases {
		t.Run(tc.format, func(t *testing.T) {
			result := IsValidOutputFormat(tc.format)
			if result != tc.expected {
				t.Errorf("IsValidOutputFormat(%q) = %v, want %v", tc.format, result, tc.expected)
			}
		})
	}
}

func BenchmarkValidateSelector(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = ValidateSelector("div.product-card > span.price")
	}
}
