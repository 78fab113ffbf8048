package banners

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mirelletran/fangallery-backend/internal/content"
	"github.com/mirelletran/fangallery-backend/pkg/db/models"
)

// bannerWire is the snapshot shape for one banner, in the legacy
// lower-flattened field names shared with the content snapshot.
type bannerWire struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	ImageURL  string `json:"imageurl"`
	LinkURL   string `json:"linkurl,omitempty"`
	Position  int    `json:"position"`
	CreatedAt string `json:"createdat,omitempty"`
}

// SnapshotCodec returns the codec for the banner snapshot channel.
func SnapshotCodec() content.SnapshotCodec[models.Banner] {
	return content.SnapshotCodec[models.Banner]{Encode: encodeSnapshot, Decode: decodeSnapshot}
}

func encodeSnapshot(banners []models.Banner) (string, error) {
	wires := make([]bannerWire, 0, len(banners))
	for _, b := range banners {
		wire := bannerWire{
			ID:       b.ID,
			Title:    b.Title,
			ImageURL: b.ImageURL,
			LinkURL:  b.LinkURL,
			Position: b.Position,
		}
		if !b.CreatedAt.IsZero() {
			wire.CreatedAt = b.CreatedAt.UTC().Format(time.RFC3339Nano)
		}
		wires = append(wires, wire)
	}
	blob, err := json.Marshal(wires)
	if err != nil {
		return "", fmt.Errorf("encoding banner snapshot: %w", err)
	}
	return string(blob), nil
}

func decodeSnapshot(blob string) ([]models.Banner, error) {
	var wires []bannerWire
	if err := json.Unmarshal([]byte(blob), &wires); err != nil {
		return nil, fmt.Errorf("decoding banner snapshot: %w", err)
	}
	banners := make([]models.Banner, 0, len(wires))
	for _, wire := range wires {
		banner := models.Banner{
			ID:       wire.ID,
			Title:    wire.Title,
			ImageURL: wire.ImageURL,
			LinkURL:  wire.LinkURL,
			Position: wire.Position,
		}
		if wire.CreatedAt != "" {
			if t, err := time.Parse(time.RFC3339Nano, wire.CreatedAt); err == nil {
				banner.CreatedAt = t
			}
		}
		banners = append(banners, banner)
	}
	return banners, nil
}
