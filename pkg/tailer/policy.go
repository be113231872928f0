package tailer

import "fmt"

// RenamePolicy decides whether a rename-triggered read advances the offset.
type RenamePolicy string

const (
	// RenameAdvance sets the offset to the observed size after a rename read,
	// the same as a modify read. No byte is delivered twice.
	RenameAdvance RenamePolicy = "advance"
	// RenameKeep leaves the offset untouched after a rename read, so the
	// next modify event delivers the same range again.
	RenameKeep RenamePolicy = "keep"
)

// FilterPolicy decides which split lines are delivered.
type FilterPolicy string

const (
	// FilterShort drops lines of at most one character before trimming
	// (empty lines, lone "\r", single letters including multi-byte ones).
	FilterShort FilterPolicy = "short"
	// FilterNone delivers every split line, including empty ones.
	FilterNone FilterPolicy = "none"
)

func ParseRenamePolicy(s string) (RenamePolicy, error) {
	switch RenamePolicy(s) {
	case "":
		return RenameAdvance, nil
	case RenameAdvance, RenameKeep:
		return RenamePolicy(s), nil
	default:
		return "", fmt.Errorf("invalid rename policy %q (supported: %q, %q)", s, RenameAdvance, RenameKeep)
	}
}

func ParseFilterPolicy(s string) (FilterPolicy, error) {
	switch FilterPolicy(s) {
	case "":
		return FilterShort, nil
	case FilterShort, FilterNone:
		return FilterPolicy(s), nil
	default:
		return "", fmt.Errorf("invalid filter policy %q (supported: %q, %q)", s, FilterShort, FilterNone)
	}
}
