package extract

import (
	"strings"

	"github.com/joseph-ayodele/papercast-grobid/internal/entity"
)

// AssembleText joins title, abstract and each section's heading and body with
// blank lines. With filter set, characters outside printable ASCII are dropped.
func AssembleText(m entity.ParsedMapping, filter bool) string {
	parts := make([]string, 0, 2+2*len(m.Sections))
	parts = append(parts, m.Title, m.Abstract)
	for _, s := range m.Sections {
		parts = append(parts, s.Heading, s.Text)
	}
	text := strings.Join(parts, "\n\n")
	if filter {
		text = FilterPrintable(text)
	}
	return text
}

// FilterPrintable keeps ASCII letters, digits, punctuation, space and
// \t \n \r \v \f. Accented letters, symbols and other scripts are removed.
func FilterPrintable(s string) string {
	return strings.Map(func(r rune) rune {
		if isPrintable(r) {
			return r
		}
		return -1
	}, s)
}

func isPrintable(r rune) bool {
	switch {
	case r >= 0x20 && r <= 0x7e:
		return true
	case r == '\t', r == '\n', r == '\r', r == '\v', r == '\f':
		return true
	}
	return false
}
