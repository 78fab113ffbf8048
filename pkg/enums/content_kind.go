package enums

import "fmt"

// ContentKind is the asset shape a taxonomy position requires.
type ContentKind string

const (
	ContentKindSingleImage ContentKind = "single-image"
	ContentKindImageZip    ContentKind = "image-zip"
	ContentKindVideo       ContentKind = "video"
)

var validContentKinds = []ContentKind{
	ContentKindSingleImage,
	ContentKindImageZip,
	ContentKindVideo,
}

// String returns the literal string for the kind.
func (c ContentKind) String() string {
	return string(c)
}

// IsValid reports whether the kind is known.
func (c ContentKind) IsValid() bool {
	for _, candidate := range validContentKinds {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseContentKind converts raw input into a ContentKind.
func ParseContentKind(value string) (ContentKind, error) {
	for _, candidate := range validContentKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid content kind %q", value)
}
