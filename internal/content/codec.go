package content

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/mirelletran/fangallery-backend/pkg/db/models"
	"github.com/mirelletran/fangallery-backend/pkg/enums"
)

// The hosted store and the fallback snapshot both speak the legacy
// lower-flattened field names (imageurl, createdat, ...). These tables are
// the only translation between that shape and models.ContentRecord: a field
// missing from both tables does not round-trip.

type outboundField struct {
	wire string
	get  func(models.ContentRecord) any
}

type inboundField func(*models.ContentRecord, any)

var recordOutbound = []outboundField{
	{"id", func(r models.ContentRecord) any { return r.ID }},
	{"title", func(r models.ContentRecord) any { return r.Title }},
	{"description", func(r models.ContentRecord) any { return r.Description }},
	{"section", func(r models.ContentRecord) any { return r.Section.String() }},
	{"category", func(r models.ContentRecord) any { return r.Category }},
	{"subcategory", func(r models.ContentRecord) any { return r.Subcategory }},
	{"tags", func(r models.ContentRecord) any { return []string(r.Tags) }},
	{"imageurl", func(r models.ContentRecord) any { return r.ImageURL }},
	{"imagefileid", func(r models.ContentRecord) any { return r.ImageFileID }},
	{"thumbnailurl", func(r models.ContentRecord) any { return r.ThumbnailURL }},
	{"thumbnailfileid", func(r models.ContentRecord) any { return r.ThumbnailFileID }},
	{"zipurl", func(r models.ContentRecord) any { return r.ZipURL }},
	{"zipfileid", func(r models.ContentRecord) any { return r.ZipFileID }},
	{"videourl", func(r models.ContentRecord) any { return r.VideoURL }},
	{"videofileid", func(r models.ContentRecord) any { return r.VideoFileID }},
	{"dateadded", func(r models.ContentRecord) any { return r.DateAdded }},
	{"date", func(r models.ContentRecord) any { return r.Date }},
	{"folder", func(r models.ContentRecord) any { return r.Folder }},
	{"createdat", func(r models.ContentRecord) any { return encodeTime(r.CreatedAt) }},
	{"updatedat", func(r models.ContentRecord) any { return encodeTime(r.UpdatedAt) }},
}

var recordInbound = map[string]inboundField{
	"id":          func(r *models.ContentRecord, v any) { r.ID = asString(v) },
	"title":       func(r *models.ContentRecord, v any) { r.Title = asString(v) },
	"description": func(r *models.ContentRecord, v any) { r.Description = asString(v) },
	"section":     func(r *models.ContentRecord, v any) { r.Section = enums.Section(asString(v)) },
	"category":    func(r *models.ContentRecord, v any) { r.Category = asString(v) },
	"subcategory": func(r *models.ContentRecord, v any) { r.Subcategory = asString(v) },
	"tags":        func(r *models.ContentRecord, v any) { r.Tags = pq.StringArray(asStrings(v)) },
	"imageurl":    func(r *models.ContentRecord, v any) { r.ImageURL = asString(v) },
	"imagefileid": func(r *models.ContentRecord, v any) { r.ImageFileID = asString(v) },
	"thumbnailurl": func(r *models.ContentRecord, v any) {
		r.ThumbnailURL = asString(v)
	},
	"thumbnailfileid": func(r *models.ContentRecord, v any) {
		r.ThumbnailFileID = asString(v)
	},
	"zipurl":      func(r *models.ContentRecord, v any) { r.ZipURL = asString(v) },
	"zipfileid":   func(r *models.ContentRecord, v any) { r.ZipFileID = asString(v) },
	"videourl":    func(r *models.ContentRecord, v any) { r.VideoURL = asString(v) },
	"videofileid": func(r *models.ContentRecord, v any) { r.VideoFileID = asString(v) },
	"dateadded":   func(r *models.ContentRecord, v any) { r.DateAdded = asString(v) },
	"date":        func(r *models.ContentRecord, v any) { r.Date = asString(v) },
	"folder":      func(r *models.ContentRecord, v any) { r.Folder = asString(v) },
	"createdat":   func(r *models.ContentRecord, v any) { r.CreatedAt = asTime(v) },
	"updatedat":   func(r *models.ContentRecord, v any) { r.UpdatedAt = asTime(v) },
}

// EncodeRecord flattens one record into its wire map.
func EncodeRecord(rec models.ContentRecord) map[string]any {
	wire := make(map[string]any, len(recordOutbound))
	for _, field := range recordOutbound {
		wire[field.wire] = field.get(rec)
	}
	return wire
}

// DecodeRecord rebuilds a record from a wire map. Keys without a table entry
// are dropped.
func DecodeRecord(wire map[string]any) models.ContentRecord {
	var rec models.ContentRecord
	for key, value := range wire {
		if apply, ok := recordInbound[key]; ok {
			apply(&rec, value)
		}
	}
	return rec
}

// EncodeSnapshot serializes records into the snapshot blob stored in the
// fallback cache.
func EncodeSnapshot(records []models.ContentRecord) (string, error) {
	wires := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		wires = append(wires, EncodeRecord(rec))
	}
	blob, err := json.Marshal(wires)
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}
	return string(blob), nil
}

// DecodeSnapshot parses a snapshot blob back into records. A malformed blob
// is an error so callers can treat the snapshot as corrupt.
func DecodeSnapshot(blob string) ([]models.ContentRecord, error) {
	var wires []map[string]any
	if err := json.Unmarshal([]byte(blob), &wires); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	records := make([]models.ContentRecord, 0, len(wires))
	for _, wire := range wires {
		records = append(records, DecodeRecord(wire))
	}
	return records, nil
}

func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStrings(v any) []string {
	switch typed := v.(type) {
	case []string:
		return typed
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func asTime(v any) time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
