package entity

// Metadata is the per-document record built from the parsed mapping.
// DOI and ArxivID are never filled yet; they are placeholders for enrichment.
type Metadata struct {
	OutPath     string   `json:"outpath"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"` // nil when the mapping had no authors
	DOI         *string  `json:"doi"`
	ArxivID     *string  `json:"arxiv_id"`
	Description string   `json:"description"`
}
