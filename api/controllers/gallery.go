package controllers

import (
	"net/http"

	"github.com/mirelletran/fangallery-backend/api/responses"
	"github.com/mirelletran/fangallery-backend/api/validators"
	"github.com/mirelletran/fangallery-backend/internal/banners"
	"github.com/mirelletran/fangallery-backend/internal/content"
	"github.com/mirelletran/fangallery-backend/pkg/enums"
	pkgerrors "github.com/mirelletran/fangallery-backend/pkg/errors"
	"github.com/mirelletran/fangallery-backend/pkg/logger"
	"github.com/mirelletran/fangallery-backend/pkg/pagination"
	"github.com/mirelletran/fangallery-backend/pkg/types"
)

const skillsCategory = "Skills"

// browseQueryFromRequest maps the shared listing params onto a browse query.
func browseQueryFromRequest(r *http.Request, sel content.Selector) (content.BrowseQuery, error) {
	q := content.BrowseQuery{
		Query: content.Query{
			Selector: sel,
			Search:   validators.QueryString(r, "q"),
		},
		Cursor: validators.QueryString(r, "cursor"),
	}

	if raw := validators.QueryString(r, "sort"); raw != "" {
		field, err := enums.ParseSortField(raw)
		if err != nil {
			return content.BrowseQuery{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort")
		}
		q.Sort = field
	}
	if raw := validators.QueryString(r, "direction"); raw != "" {
		direction, err := enums.ParseSortDirection(raw)
		if err != nil {
			return content.BrowseQuery{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid direction")
		}
		q.Direction = direction
	}

	limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
	if err != nil {
		return content.BrowseQuery{}, err
	}
	q.Limit = limit
	return q, nil
}

func degraded(source content.Source) bool {
	return source == content.SourceFallback || source == content.SourceEmpty
}

// Gallery serves the main grid. The section defaults to Artwork; category and
// subcategory narrow the selector.
func Gallery(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		section := enums.SectionArtwork
		if raw := validators.QueryString(r, "section"); raw != "" {
			parsed, err := enums.ParseSection(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid section"))
				return
			}
			section = parsed
		}

		q, err := browseQueryFromRequest(r, content.Selector{
			Section:     section,
			Category:    validators.QueryString(r, "category"),
			Subcategory: validators.QueryString(r, "subcategory"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Browse(r.Context(), q)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]content.GalleryItem, 0, len(result.Items))
		for _, vm := range result.Items {
			items = append(items, content.GalleryItemOf(vm))
		}
		responses.WriteSuccess(w, types.PagedData{
			Items:      items,
			NextCursor: result.NextCursor,
			Degraded:   degraded(result.Source),
		})
	}
}

// Banners serves the slider in display order.
func Banners(svc banners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slides, source := svc.Slides(r.Context())
		responses.WriteSuccess(w, types.PagedData{
			Items:    slides,
			Degraded: degraded(source),
		})
	}
}

// Skills serves the skill panel, optionally narrowed to one subcategory.
func Skills(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := browseQueryFromRequest(r, content.Selector{
			Section:     enums.SectionArtwork,
			Category:    skillsCategory,
			Subcategory: validators.QueryString(r, "subcategory"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Browse(r.Context(), q)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries := make([]content.SkillEntry, 0, len(result.Items))
		for _, vm := range result.Items {
			entries = append(entries, content.SkillEntryOf(vm))
		}
		responses.WriteSuccess(w, types.PagedData{
			Items:      entries,
			NextCursor: result.NextCursor,
			Degraded:   degraded(result.Source),
		})
	}
}

// Leaks serves the leaks surface, optionally narrowed to one category.
func Leaks(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := browseQueryFromRequest(r, content.Selector{
			Section:  enums.SectionLeaks,
			Category: validators.QueryString(r, "category"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Browse(r.Context(), q)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries := make([]content.LeakEntry, 0, len(result.Items))
		for _, vm := range result.Items {
			entries = append(entries, content.LeakEntryOf(vm))
		}
		responses.WriteSuccess(w, types.PagedData{
			Items:      entries,
			NextCursor: result.NextCursor,
			Degraded:   degraded(result.Source),
		})
	}
}
