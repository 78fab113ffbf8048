package content

import (
	"time"

	"github.com/mirelletran/fangallery-backend/internal/taxonomy"
	"github.com/mirelletran/fangallery-backend/pkg/db/models"
)

// ViewModel is the display-ready projection of a record: camelCase fields, a
// resolved download URL and a resolved dateAdded.
type ViewModel struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Section      string   `json:"section"`
	Category     string   `json:"category,omitempty"`
	Subcategory  string   `json:"subcategory,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	ImageURL     string   `json:"imageUrl,omitempty"`
	ThumbnailURL string   `json:"thumbnailUrl,omitempty"`
	ZipURL       string   `json:"zipUrl,omitempty"`
	VideoURL     string   `json:"videoUrl,omitempty"`
	DownloadURL  string   `json:"downloadUrl,omitempty"`
	DateAdded    string   `json:"dateAdded"`
	ContentKind  string   `json:"contentKind,omitempty"`
}

// GalleryItem is the grid surface shape.
type GalleryItem struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Category     string   `json:"category,omitempty"`
	Subcategory  string   `json:"subcategory,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	ImageURL     string   `json:"imageUrl,omitempty"`
	ThumbnailURL string   `json:"thumbnailUrl,omitempty"`
	VideoURL     string   `json:"videoUrl,omitempty"`
	DownloadURL  string   `json:"downloadUrl,omitempty"`
	DateAdded    string   `json:"dateAdded"`
}

// BannerSlide is the slider surface shape.
type BannerSlide struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ImageURL string `json:"imageUrl"`
}

// SkillEntry is the skill panel surface shape.
type SkillEntry struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Subcategory  string `json:"subcategory,omitempty"`
	ImageURL     string `json:"imageUrl,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	VideoURL     string `json:"videoUrl,omitempty"`
	DownloadURL  string `json:"downloadUrl,omitempty"`
}

// LeakEntry is the leaks surface shape.
type LeakEntry struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	VideoURL    string   `json:"videoUrl,omitempty"`
	DownloadURL string   `json:"downloadUrl,omitempty"`
	DateAdded   string   `json:"dateAdded"`
}

// NewViewModel projects one record. The taxonomy resolves the derived
// content kind; it is never stored on the record.
func NewViewModel(rec models.ContentRecord, table *taxonomy.Table, now func() time.Time) ViewModel {
	vm := ViewModel{
		ID:           rec.ID,
		Title:        rec.Title,
		Description:  rec.Description,
		Section:      rec.Section.String(),
		Category:     rec.Category,
		Subcategory:  rec.Subcategory,
		Tags:         rec.Tags,
		ImageURL:     rec.ImageURL,
		ThumbnailURL: rec.ThumbnailURL,
		ZipURL:       rec.ZipURL,
		VideoURL:     rec.VideoURL,
		DownloadURL:  resolveDownloadURL(rec),
		DateAdded:    resolveDateAdded(rec, now),
	}
	if kind, ok := table.KindFor(rec.Category, rec.Subcategory); ok {
		vm.ContentKind = kind.String()
	}
	return vm
}

// GalleryItemOf narrows a view model for the grid.
func GalleryItemOf(vm ViewModel) GalleryItem {
	return GalleryItem{
		ID:           vm.ID,
		Title:        vm.Title,
		Category:     vm.Category,
		Subcategory:  vm.Subcategory,
		Tags:         vm.Tags,
		ImageURL:     vm.ImageURL,
		ThumbnailURL: vm.ThumbnailURL,
		VideoURL:     vm.VideoURL,
		DownloadURL:  vm.DownloadURL,
		DateAdded:    vm.DateAdded,
	}
}

// BannerSlideOf narrows a view model for the slider.
func BannerSlideOf(vm ViewModel) BannerSlide {
	return BannerSlide{ID: vm.ID, Title: vm.Title, ImageURL: vm.ImageURL}
}

// SkillEntryOf narrows a view model for the skill panel.
func SkillEntryOf(vm ViewModel) SkillEntry {
	return SkillEntry{
		ID:           vm.ID,
		Title:        vm.Title,
		Subcategory:  vm.Subcategory,
		ImageURL:     vm.ImageURL,
		ThumbnailURL: vm.ThumbnailURL,
		VideoURL:     vm.VideoURL,
		DownloadURL:  vm.DownloadURL,
	}
}

// LeakEntryOf narrows a view model for the leaks surface.
func LeakEntryOf(vm ViewModel) LeakEntry {
	return LeakEntry{
		ID:          vm.ID,
		Title:       vm.Title,
		Description: vm.Description,
		Category:    vm.Category,
		Tags:        vm.Tags,
		ImageURL:    vm.ImageURL,
		VideoURL:    vm.VideoURL,
		DownloadURL: vm.DownloadURL,
		DateAdded:   vm.DateAdded,
	}
}

// resolveDownloadURL picks the richest asset: zip > image > video.
func resolveDownloadURL(rec models.ContentRecord) string {
	switch {
	case rec.ZipURL != "":
		return rec.ZipURL
	case rec.ImageURL != "":
		return rec.ImageURL
	case rec.VideoURL != "":
		return rec.VideoURL
	default:
		return ""
	}
}

// resolveDateAdded picks the display date: dateAdded > date > createdAt >
// now. The legacy fields are free-form strings and pass through verbatim.
func resolveDateAdded(rec models.ContentRecord, now func() time.Time) string {
	if rec.DateAdded != "" {
		return rec.DateAdded
	}
	if rec.Date != "" {
		return rec.Date
	}
	if !rec.CreatedAt.IsZero() {
		return rec.CreatedAt.UTC().Format(time.RFC3339)
	}
	if now == nil {
		now = time.Now
	}
	return now().UTC().Format(time.RFC3339)
}

// dateSortKey parses a resolved date into epoch milliseconds for ordering.
// Anything unparsable coerces to 0 so the caller can apply the alphabetical
// tie-break.
func dateSortKey(value string) int64 {
	if value == "" {
		return 0
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02",
		"2006-01-02 15:04:05",
		"01/02/2006",
		"January 2, 2006",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}
