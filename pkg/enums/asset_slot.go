package enums

import "fmt"

// AssetSlot names one of the asset positions a content record can carry.
type AssetSlot string

const (
	AssetSlotImage     AssetSlot = "image"
	AssetSlotThumbnail AssetSlot = "thumbnail"
	AssetSlotZip       AssetSlot = "zip"
	AssetSlotVideo     AssetSlot = "video"
)

var validAssetSlots = []AssetSlot{
	AssetSlotImage,
	AssetSlotThumbnail,
	AssetSlotZip,
	AssetSlotVideo,
}

// String returns the literal string for the slot.
func (a AssetSlot) String() string {
	return string(a)
}

// IsValid reports whether the slot is known.
func (a AssetSlot) IsValid() bool {
	for _, candidate := range validAssetSlots {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAssetSlot converts raw input into an AssetSlot.
func ParseAssetSlot(value string) (AssetSlot, error) {
	for _, candidate := range validAssetSlots {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid asset slot %q", value)
}
