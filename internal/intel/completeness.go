// internal/intel/completeness.go
package intel

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/AkaashThawani/karyakarta-agent-sub000/pkg/types"
)

// suggestionRule maps missing-field name hints to the follow-up action
// most likely to recover the field.
type suggestionRule struct {
	hints    []string
	action   string
	priority types.ActionPriority
}

var suggestionRules = []suggestionRule{
	{hints: []string{"price", "cost", "amount"}, action: "click_through", priority: types.PriorityHigh},
	{hints: []string{"rating", "score", "stars"}, action: "pattern_reextraction", priority: types.PriorityMedium},
	{hints: []string{"phone", "email", "contact"}, action: "navigate_contact", priority: types.PriorityMedium},
	{hints: []string{"website", "url", "link"}, action: "link_extraction", priority: types.PriorityHigh},
	{hints: []string{"description", "details"}, action: "click_through", priority: types.PriorityMedium},
	{hints: []string{"publisher", "author", "brand"}, action: "metadata_extraction", priority: types.PriorityLow},
}

// CompletenessValidator scores how well a record set answers the
// requested fields and suggests follow-up actions for the gaps.
type CompletenessValidator struct {
	sentinel string
	titler   cases.Caser
}

func NewCompletenessValidator(sentinel string) *CompletenessValidator {
	return &CompletenessValidator{
		sentinel: sentinel,
		titler:   cases.Title(language.English),
	}
}

// Validate builds the report for records against the required fields.
// A field counts as present when any record carries a real value for
// it, where sentinel placeholders are not real values.
func (v *CompletenessValidator) Validate(records []types.Record, required []string) *types.ValidationReport {
	report := &types.ValidationReport{
		Valid: len(records) > 0,
	}

	for _, field := range required {
		if v.fieldPresent(records, field) {
			report.PresentFields = append(report.PresentFields, field)
		} else {
			report.MissingFields = append(report.MissingFields, field)
		}
	}

	report.Complete = len(report.MissingFields) == 0
	if len(required) == 0 {
		report.Coverage = 1.0
	} else {
		report.Coverage = float64(len(report.PresentFields)) / float64(len(required))
	}

	report.Confidence = 0.4*report.Coverage + 0.4*v.meanDensity(records) + 0.2*v.fieldAgreement(records)
	if len(records) == 0 {
		report.Confidence = 0
	}

	for _, field := range report.MissingFields {
		report.SuggestedActions = append(report.SuggestedActions, v.suggest(field))
	}
	sort.SliceStable(report.SuggestedActions, func(i, j int) bool {
		return report.SuggestedActions[i].Priority.Rank() < report.SuggestedActions[j].Priority.Rank()
	})

	return report
}

func (v *CompletenessValidator) fieldPresent(records []types.Record, field string) bool {
	for _, rec := range records {
		if v.realValue(rec.Get(field)) {
			return true
		}
	}
	return false
}

// meanDensity averages the fraction of real values per record.
func (v *CompletenessValidator) meanDensity(records []types.Record) float64 {
	if len(records) == 0 {
		return 0
	}

	sum := 0.0
	for _, rec := range records {
		names := rec.FieldNames()
		if len(names) == 0 {
			continue
		}
		filled := 0
		for _, name := range names {
			if v.realValue(rec.Fields[name]) {
				filled++
			}
		}
		sum += float64(filled) / float64(len(names))
	}
	return sum / float64(len(records))
}

// fieldAgreement is the Jaccard similarity between the field sets every
// record filled and the field sets any record filled. Uniform records
// score 1.0; ragged ones drag confidence down.
func (v *CompletenessValidator) fieldAgreement(records []types.Record) float64 {
	if len(records) <= 1 {
		return 1.0
	}

	union := make(map[string]struct{})
	intersection := make(map[string]struct{})
	for i, rec := range records {
		filled := make(map[string]struct{})
		for _, name := range rec.FieldNames() {
			if v.realValue(rec.Fields[name]) {
				filled[name] = struct{}{}
				union[name] = struct{}{}
			}
		}
		if i == 0 {
			for name := range filled {
				intersection[name] = struct{}{}
			}
			continue
		}
		for name := range intersection {
			if _, ok := filled[name]; !ok {
				delete(intersection, name)
			}
		}
	}
	if len(union) == 0 {
		return 1.0
	}
	return float64(len(intersection)) / float64(len(union))
}

func (v *CompletenessValidator) realValue(value string) bool {
	value = strings.TrimSpace(value)
	return value != "" && value != v.sentinel
}

func (v *CompletenessValidator) suggest(field string) types.SuggestedAction {
	lower := strings.ToLower(field)
	for _, rule := range suggestionRules {
		for _, hint := range rule.hints {
			if strings.Contains(lower, hint) {
				return types.SuggestedAction{
					Action:      rule.action,
					Field:       field,
					Description: v.describe(field, rule.action),
					Priority:    rule.priority,
				}
			}
		}
	}
	return types.SuggestedAction{
		Action:      "click_through",
		Field:       field,
		Description: v.describe(field, "click_through"),
		Priority:    types.PriorityLow,
	}
}

func (v *CompletenessValidator) describe(field, action string) string {
	return fmt.Sprintf("%s was not found in any record; try %s",
		v.titler.String(field), strings.ReplaceAll(action, "_", " "))
}
