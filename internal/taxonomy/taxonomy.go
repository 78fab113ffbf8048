package taxonomy

import (
	"sort"
	"strings"

	"github.com/mirelletran/fangallery-backend/pkg/enums"
)

// Subcategory is a leaf of the category tree: it fixes the required asset
// shape and the bucket folder for records filed under it.
type Subcategory struct {
	Kind   enums.ContentKind
	Folder string
}

// Category is one entry of the taxonomy. A category either carries its own
// kind/folder (flat category) or a set of subcategories (tree category).
type Category struct {
	Kind          enums.ContentKind
	Folder        string
	Subcategories map[string]Subcategory
}

// IsTree reports whether the category requires a subcategory.
func (c Category) IsTree() bool {
	return len(c.Subcategories) > 0
}

// Table is the immutable category taxonomy. It is built once at startup and
// injected wherever classification or folder resolution is needed; lookups
// never mutate it.
type Table struct {
	categories map[string]Category
}

// New builds a table from the provided category map. The map is copied so
// later mutation of the argument cannot leak into the table.
func New(categories map[string]Category) *Table {
	copied := make(map[string]Category, len(categories))
	for name, cat := range categories {
		subs := make(map[string]Subcategory, len(cat.Subcategories))
		for subName, sub := range cat.Subcategories {
			subs[subName] = sub
		}
		cat.Subcategories = subs
		copied[name] = cat
	}
	return &Table{categories: copied}
}

// Default returns the production taxonomy.
func Default() *Table {
	return New(map[string]Category{
		"Banners": {
			Folder: "artwork/banners",
			Subcategories: map[string]Subcategory{
				"Character Banners": {Kind: enums.ContentKindImageZip, Folder: "artwork/banners/characters"},
				"Event Banners":     {Kind: enums.ContentKindSingleImage, Folder: "artwork/banners/events"},
			},
		},
		"Illustrations": {
			Kind:   enums.ContentKindSingleImage,
			Folder: "artwork/illustrations",
		},
		"Wallpapers": {
			Kind:   enums.ContentKindImageZip,
			Folder: "artwork/wallpapers",
		},
		"Skills": {
			Folder: "artwork/skills",
			Subcategories: map[string]Subcategory{
				"Skill Icons":    {Kind: enums.ContentKindImageZip, Folder: "artwork/skills/icons"},
				"Skill Previews": {Kind: enums.ContentKindVideo, Folder: "artwork/skills/previews"},
			},
		},
		"Main Leaks": {
			Kind:   enums.ContentKindVideo,
			Folder: "leaks/main",
		},
		"Beta Leaks": {
			Kind:   enums.ContentKindImageZip,
			Folder: "leaks/beta",
		},
	})
}

// Categories returns the category names in sorted order.
func (t *Table) Categories() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.categories))
	for name := range t.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Subcategories returns the sorted subcategory names of a tree category.
func (t *Table) Subcategories(category string) []string {
	cat, ok := t.lookupCategory(category)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(cat.Subcategories))
	for name := range cat.Subcategories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Contains reports whether the selector names a valid taxonomy position: the
// category must exist, and a tree category additionally requires one of its
// subcategories.
func (t *Table) Contains(category, subcategory string) bool {
	cat, ok := t.lookupCategory(category)
	if !ok {
		return false
	}
	if !cat.IsTree() {
		return subcategory == ""
	}
	_, ok = lookupFold(cat.Subcategories, subcategory)
	return ok
}

// KindFor resolves the content kind for a taxonomy position.
func (t *Table) KindFor(category, subcategory string) (enums.ContentKind, bool) {
	cat, ok := t.lookupCategory(category)
	if !ok {
		return "", false
	}
	if !cat.IsTree() {
		return cat.Kind, cat.Kind.IsValid()
	}
	sub, ok := lookupFold(cat.Subcategories, subcategory)
	if !ok {
		return "", false
	}
	return sub.Kind, sub.Kind.IsValid()
}

// FolderFor resolves the asset bucket folder for a taxonomy position. The
// most specific folder wins; unknown positions fall back to "misc".
func (t *Table) FolderFor(category, subcategory string) string {
	cat, ok := t.lookupCategory(category)
	if !ok {
		return "misc"
	}
	if cat.IsTree() {
		if sub, ok := lookupFold(cat.Subcategories, subcategory); ok && sub.Folder != "" {
			return sub.Folder
		}
	}
	if cat.Folder != "" {
		return cat.Folder
	}
	return "misc"
}

func (t *Table) lookupCategory(category string) (Category, bool) {
	if t == nil {
		return Category{}, false
	}
	return lookupFold(t.categories, category)
}

// lookupFold tries an exact match first, then case-insensitive. Legacy
// records carry inconsistent casing, so strict lookup alone would orphan them.
func lookupFold[V any](m map[string]V, key string) (V, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for name, v := range m {
		if strings.EqualFold(name, key) {
			return v, true
		}
	}
	var zero V
	return zero, false
}
