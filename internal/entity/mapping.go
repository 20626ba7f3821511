package entity

// Section is one body division of a parsed document.
type Section struct {
	Heading string `json:"heading"`
	Text    string `json:"text"`
}

// ParsedMapping is the flat structure read from the parser's TEI output.
// Authors is nil when the document carried no author entries; otherwise it
// holds semicolon-delimited "First Last" names.
type ParsedMapping struct {
	Title    string    `json:"title"`
	Abstract string    `json:"abstract"`
	Sections []Section `json:"sections"`
	Authors  *string   `json:"authors,omitempty"`
}

// AsMap returns the mapping as generic JSON-compatible values, the shape
// stored on a Production as the raw article mapping.
func (m ParsedMapping) AsMap() map[string]any {
	sections := make([]any, 0, len(m.Sections))
	for _, s := range m.Sections {
		sections = append(sections, map[string]any{
			"heading": s.Heading,
			"text":    s.Text,
		})
	}
	out := map[string]any{
		"title":    m.Title,
		"abstract": m.Abstract,
		"sections": sections,
	}
	if m.Authors != nil {
		out["authors"] = *m.Authors
	}
	return out
}
