package content

import (
	"sort"
	"strings"
	"time"

	"github.com/mirelletran/fangallery-backend/internal/taxonomy"
	"github.com/mirelletran/fangallery-backend/pkg/db/models"
	"github.com/mirelletran/fangallery-backend/pkg/enums"
)

// Query describes one projection request.
type Query struct {
	Selector  Selector
	Search    string
	Sort      enums.SortField
	Direction enums.SortDirection
}

// Projector turns flat record lists into ordered view models. It performs no
// I/O: everything it needs is injected, so the same projector serves remote
// results and fallback snapshots alike.
type Projector struct {
	taxonomy *taxonomy.Table
	policies []MatcherPolicy
	now      func() time.Time
}

// ProjectorOption tweaks projector construction.
type ProjectorOption func(*Projector)

// WithPolicies replaces the default matcher chain.
func WithPolicies(policies []MatcherPolicy) ProjectorOption {
	return func(p *Projector) {
		if len(policies) > 0 {
			p.policies = policies
		}
	}
}

// WithClock overrides the clock used for date fallbacks in tests.
func WithClock(now func() time.Time) ProjectorOption {
	return func(p *Projector) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProjector builds a projector over the given taxonomy.
func NewProjector(table *taxonomy.Table, opts ...ProjectorOption) *Projector {
	p := &Projector{
		taxonomy: table,
		policies: DefaultPolicies(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Project filters, searches and sorts records into view models.
func (p *Projector) Project(records []models.ContentRecord, q Query) []ViewModel {
	search := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]ViewModel, 0, len(records))
	for _, rec := range records {
		if _, ok := matchSelector(p.policies, rec, q.Selector); !ok {
			continue
		}
		// A record without a primary asset renders nothing; drop it.
		if rec.ImageURL == "" && rec.VideoURL == "" {
			continue
		}
		vm := NewViewModel(rec, p.taxonomy, p.now)
		if search != "" && !matchesSearch(vm, search) {
			continue
		}
		out = append(out, vm)
	}

	p.sortModels(out, q)
	return out
}

func matchesSearch(vm ViewModel, loweredSearch string) bool {
	if strings.Contains(strings.ToLower(vm.Title), loweredSearch) {
		return true
	}
	if strings.Contains(strings.ToLower(vm.Description), loweredSearch) {
		return true
	}
	for _, tag := range vm.Tags {
		if strings.Contains(strings.ToLower(tag), loweredSearch) {
			return true
		}
	}
	return false
}

func (p *Projector) sortModels(models []ViewModel, q Query) {
	field := q.Sort
	if !field.IsValid() {
		field = enums.SortFieldDate
	}
	descending := q.Direction == enums.SortDesc

	less := func(a, b ViewModel) bool {
		if field == enums.SortFieldDate {
			keyA, keyB := dateSortKey(a.DateAdded), dateSortKey(b.DateAdded)
			if keyA != keyB {
				return keyA < keyB
			}
			// Both unparsable (or equal): deterministic alphabetical tie-break.
		}
		return strings.ToLower(a.Title) < strings.ToLower(b.Title)
	}

	sort.SliceStable(models, func(i, j int) bool {
		if descending {
			return less(models[j], models[i])
		}
		return less(models[i], models[j])
	})
}
