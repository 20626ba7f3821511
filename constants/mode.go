package constants

import (
	"fmt"
	"strings"
)

// ExtractionMode selects the extraction strategy.
type ExtractionMode string

const (
	// ModeStandard parses the mapping only: metadata, text and the raw mapping.
	ModeStandard ExtractionMode = "standard"
	// ModeRich also reads the annotated TEI tree for authors (and, when enabled, crops).
	ModeRich ExtractionMode = "rich"
)

var allModes = []ExtractionMode{ModeStandard, ModeRich}

// Modes returns the accepted mode names.
func Modes() []string {
	out := make([]string, len(allModes))
	for i, m := range allModes {
		out[i] = string(m)
	}
	return out
}

// ParseMode maps user input to a mode. Empty input means standard.
func ParseMode(input string) (ExtractionMode, error) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return ModeStandard, nil
	}
	for _, m := range allModes {
		if normalized == string(m) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown extraction mode %q (want one of %s)", input, strings.Join(Modes(), ", "))
}

func (m ExtractionMode) String() string { return string(m) }
