package content

import (
	"strings"

	"github.com/mirelletran/fangallery-backend/pkg/db/models"
	"github.com/mirelletran/fangallery-backend/pkg/enums"
)

// Selector names the taxonomy position a surface is asking for. An empty
// Category selects the whole section.
type Selector struct {
	Section     enums.Section
	Category    string
	Subcategory string
}

// MatcherPolicy is one predicate in the ranked matching chain. Policies are
// evaluated in order for diagnostics; inclusion is the union of all of them.
type MatcherPolicy struct {
	Name  string
	Match func(rec models.ContentRecord, sel Selector) bool
}

// DefaultPolicies returns the permissive chain tolerating legacy tagging:
// exact equality, case-insensitive equality, selector-substring on category,
// then selector-substring on title. The title policy is the loosest and
// deliberately last; deployments with clean data can drop it.
func DefaultPolicies() []MatcherPolicy {
	return []MatcherPolicy{
		{
			Name: "exact",
			Match: func(rec models.ContentRecord, sel Selector) bool {
				if rec.Category != sel.Category {
					return false
				}
				return sel.Subcategory == "" || rec.Subcategory == sel.Subcategory
			},
		},
		{
			Name: "case-insensitive",
			Match: func(rec models.ContentRecord, sel Selector) bool {
				if !strings.EqualFold(rec.Category, sel.Category) {
					return false
				}
				return sel.Subcategory == "" || strings.EqualFold(rec.Subcategory, sel.Subcategory)
			},
		},
		{
			Name: "category-substring",
			Match: func(rec models.ContentRecord, sel Selector) bool {
				return containsFold(rec.Category, sel.Category)
			},
		},
		{
			Name: "title-substring",
			Match: func(rec models.ContentRecord, sel Selector) bool {
				return containsFold(rec.Title, sel.Category)
			},
		},
	}
}

// matchSelector reports whether the record belongs to the selector and which
// policy admitted it first.
func matchSelector(policies []MatcherPolicy, rec models.ContentRecord, sel Selector) (string, bool) {
	if sel.Section != "" && rec.Section != sel.Section {
		return "", false
	}
	if sel.Category == "" {
		return "section", true
	}
	for _, policy := range policies {
		if policy.Match(rec, sel) {
			return policy.Name, true
		}
	}
	return "", false
}

func containsFold(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
