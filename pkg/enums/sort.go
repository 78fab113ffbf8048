package enums

import "fmt"

// SortField selects the comparator used when ordering projections.
type SortField string

const (
	SortFieldDate         SortField = "date"
	SortFieldAlphabetical SortField = "alphabetical"
)

// SortDirection orders a projection ascending or descending.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// String returns the literal string for the field.
func (f SortField) String() string {
	return string(f)
}

// IsValid reports whether the field is known.
func (f SortField) IsValid() bool {
	return f == SortFieldDate || f == SortFieldAlphabetical
}

// ParseSortField converts raw input into a SortField.
func ParseSortField(value string) (SortField, error) {
	switch SortField(value) {
	case SortFieldDate, SortFieldAlphabetical:
		return SortField(value), nil
	}
	return "", fmt.Errorf("invalid sort field %q", value)
}

// String returns the literal string for the direction.
func (d SortDirection) String() string {
	return string(d)
}

// IsValid reports whether the direction is known.
func (d SortDirection) IsValid() bool {
	return d == SortAsc || d == SortDesc
}

// ParseSortDirection converts raw input into a SortDirection.
func ParseSortDirection(value string) (SortDirection, error) {
	switch SortDirection(value) {
	case SortAsc, SortDesc:
		return SortDirection(value), nil
	}
	return "", fmt.Errorf("invalid sort direction %q", value)
}
