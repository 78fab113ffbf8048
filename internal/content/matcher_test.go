package content

import (
	"testing"

	"github.com/mirelletran/fangallery-backend/pkg/db/models"
	"github.com/mirelletran/fangallery-backend/pkg/enums"
)

func TestMatchSelectorPolicies(t *testing.T) {
	t.Parallel()

	policies := DefaultPolicies()

	cases := []struct {
		name       string
		rec        models.ContentRecord
		sel        Selector
		wantPolicy string
		wantMatch  bool
	}{
		{
			name:       "exactMatch",
			rec:        models.ContentRecord{Section: enums.SectionLeaks, Category: "Main Leaks"},
			sel:        Selector{Section: enums.SectionLeaks, Category: "Main Leaks"},
			wantPolicy: "exact",
			wantMatch:  true,
		},
		{
			name:       "caseInsensitiveMatch",
			rec:        models.ContentRecord{Section: enums.SectionLeaks, Category: "main leaks"},
			sel:        Selector{Section: enums.SectionLeaks, Category: "Main Leaks"},
			wantPolicy: "case-insensitive",
			wantMatch:  true,
		},
		{
			name:       "categorySubstringMatch",
			rec:        models.ContentRecord{Section: enums.SectionArtwork, Category: "Event Banners 2024"},
			sel:        Selector{Section: enums.SectionArtwork, Category: "Banners"},
			wantPolicy: "category-substring",
			wantMatch:  true,
		},
		{
			name:       "titleSubstringMatch",
			rec:        models.ContentRecord{Section: enums.SectionArtwork, Category: "Misc", Title: "New Banners preview"},
			sel:        Selector{Section: enums.SectionArtwork, Category: "Banners"},
			wantPolicy: "title-substring",
			wantMatch:  true,
		},
		{
			name:      "sectionMismatchRejects",
			rec:       models.ContentRecord{Section: enums.SectionLeaks, Category: "Main Leaks"},
			sel:       Selector{Section: enums.SectionArtwork, Category: "Main Leaks"},
			wantMatch: false,
		},
		{
			name:       "emptyCategorySelectsWholeSection",
			rec:        models.ContentRecord{Section: enums.SectionArtwork, Category: "Anything"},
			sel:        Selector{Section: enums.SectionArtwork},
			wantPolicy: "section",
			wantMatch:  true,
		},
		{
			name:      "noPolicyAdmits",
			rec:       models.ContentRecord{Section: enums.SectionArtwork, Category: "Misc", Title: "Plain"},
			sel:       Selector{Section: enums.SectionArtwork, Category: "Banners"},
			wantMatch: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			policy, ok := matchSelector(policies, tc.rec, tc.sel)
			if ok != tc.wantMatch {
				t.Fatalf("expected match=%v, got %v", tc.wantMatch, ok)
			}
			if ok && policy != tc.wantPolicy {
				t.Fatalf("expected policy %q, got %q", tc.wantPolicy, policy)
			}
		})
	}
}

func TestMatchSelectorSubcategory(t *testing.T) {
	t.Parallel()

	policies := DefaultPolicies()

	rec := models.ContentRecord{
		Section:     enums.SectionArtwork,
		Category:    "Banners",
		Subcategory: "Character Banners",
	}

	if _, ok := matchSelector(policies, rec, Selector{Category: "Banners", Subcategory: "character banners"}); !ok {
		t.Fatal("expected case-insensitive subcategory match")
	}
	// A record in the sibling subcategory is still admitted by the
	// category-substring policy: inclusion is the union of all policies.
	policy, ok := matchSelector(policies, rec, Selector{Category: "Banners", Subcategory: "Event Banners"})
	if !ok || policy != "category-substring" {
		t.Fatalf("expected category-substring admission, got %q match=%v", policy, ok)
	}
}

func TestContainsFold(t *testing.T) {
	t.Parallel()

	if !containsFold("Main Leaks Archive", "main leaks") {
		t.Fatal("expected folded substring match")
	}
	if containsFold("anything", "") {
		t.Fatal("empty needle must not match")
	}
}
