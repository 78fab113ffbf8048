package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mirelletran/fangallery-backend/api/responses"
	"github.com/mirelletran/fangallery-backend/api/validators"
	"github.com/mirelletran/fangallery-backend/internal/banners"
	"github.com/mirelletran/fangallery-backend/internal/content"
	"github.com/mirelletran/fangallery-backend/pkg/logger"
)

type reorderBannersRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// AdminReorderBanners rewrites the slider order to match the posted IDs.
func AdminReorderBanners(svc banners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload reorderBannersRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Reorder(r.Context(), payload.IDs); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "reordered", "count": len(payload.IDs)})
	}
}

// AdminDeleteBanner removes the content record behind a slide; the mirrored
// banner row and stored assets go with it.
func AdminDeleteBanner(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"id": id, "status": "deleted"})
	}
}
