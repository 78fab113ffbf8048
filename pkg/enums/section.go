package enums

import "fmt"

// Section is the top level of the content taxonomy.
type Section string

const (
	SectionArtwork      Section = "Artwork"
	SectionLeaks        Section = "Leaks"
	SectionBannerSlider Section = "Banner Slider"
)

var validSections = []Section{
	SectionArtwork,
	SectionLeaks,
	SectionBannerSlider,
}

// String returns the literal string for the section.
func (s Section) String() string {
	return string(s)
}

// IsValid reports whether the section is known.
func (s Section) IsValid() bool {
	for _, candidate := range validSections {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSection converts raw input into a Section.
func ParseSection(value string) (Section, error) {
	for _, candidate := range validSections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid section %q", value)
}
