package controllers

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mirelletran/fangallery-backend/api/responses"
	"github.com/mirelletran/fangallery-backend/internal/content"
	"github.com/mirelletran/fangallery-backend/pkg/enums"
	pkgerrors "github.com/mirelletran/fangallery-backend/pkg/errors"
	"github.com/mirelletran/fangallery-backend/pkg/logger"
)

const multipartMemoryLimit = 32 << 20

// AdminCreateContent publishes a record from a multipart form. Text fields
// carry the metadata; file fields are named after their asset slot (image,
// thumbnail, zip, video).
func AdminCreateContent(svc content.Service, maxUploadMB int, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, closeUploads, err := parseUploadForm(w, r, maxUploadMB)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer closeUploads()

		section, err := enums.ParseSection(formValue(form, "section"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid section"))
			return
		}

		uploads, err := collectUploads(form)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := content.CreateInput{
			Title:       formValue(form, "title"),
			Description: formValue(form, "description"),
			Section:     section,
			Category:    formValue(form, "category"),
			Subcategory: formValue(form, "subcategory"),
			Tags:        formTags(form),
			DateAdded:   formValue(form, "dateAdded"),
			Uploads:     uploads,
		}

		vm, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, vm)
	}
}

// AdminUpdateContent patches a record. Only fields present in the form are
// touched; file fields replace the asset in the matching slot.
func AdminUpdateContent(svc content.Service, maxUploadMB int, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		form, closeUploads, err := parseUploadForm(w, r, maxUploadMB)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer closeUploads()

		uploads, err := collectUploads(form)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := content.UpdateInput{Uploads: uploads}
		if v, ok := optionalFormValue(form, "title"); ok {
			input.Title = &v
		}
		if v, ok := optionalFormValue(form, "description"); ok {
			input.Description = &v
		}
		if v, ok := optionalFormValue(form, "dateAdded"); ok {
			input.DateAdded = &v
		}
		if _, ok := form.Value["tags"]; ok {
			tags := formTags(form)
			input.Tags = &tags
		}

		vm, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vm)
	}
}

// AdminDeleteContent removes a record, its mirrored banner row, and its
// stored assets.
func AdminDeleteContent(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"id": id, "status": "deleted"})
	}
}

// AdminGetContent returns the full view model for an editor form.
func AdminGetContent(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vm, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vm)
	}
}

func parseUploadForm(w http.ResponseWriter, r *http.Request, maxUploadMB int) (*multipart.Form, func(), error) {
	if maxUploadMB > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(maxUploadMB)<<20)
	}
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		return nil, func() {}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	form := r.MultipartForm
	return form, func() { form.RemoveAll() }, nil
}

// collectUploads opens one file per asset slot. The returned readers stay
// valid until the multipart form is removed.
func collectUploads(form *multipart.Form) ([]content.AssetUpload, error) {
	var uploads []content.AssetUpload
	for _, slot := range []enums.AssetSlot{
		enums.AssetSlotImage,
		enums.AssetSlotThumbnail,
		enums.AssetSlotZip,
		enums.AssetSlotVideo,
	} {
		headers := form.File[string(slot)]
		if len(headers) == 0 {
			continue
		}
		if len(headers) > 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "one file per slot").WithDetails(map[string]any{"slot": string(slot)})
		}
		file, err := headers[0].Open()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "open uploaded file")
		}
		uploads = append(uploads, content.AssetUpload{
			Slot:        slot,
			FileName:    headers[0].Filename,
			ContentType: headers[0].Header.Get("Content-Type"),
			Body:        file,
		})
	}
	return uploads, nil
}

func formValue(form *multipart.Form, key string) string {
	values := form.Value[key]
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func optionalFormValue(form *multipart.Form, key string) (string, bool) {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return strings.TrimSpace(values[0]), true
}

// formTags accepts repeated tag fields as well as comma-separated lists.
func formTags(form *multipart.Form) []string {
	var tags []string
	for _, raw := range form.Value["tags"] {
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				tags = append(tags, trimmed)
			}
		}
	}
	return tags
}
