package extract

import (
	"strings"

	"github.com/joseph-ayodele/papercast-grobid/internal/entity"
)

// BuildMetadata derives the document record from a parsed mapping. Authors
// are the mapping's author string split on ";" (nil when absent). DOI and
// ArxivID are not looked up and stay nil.
func BuildMetadata(m entity.ParsedMapping, sourcePath string) entity.Metadata {
	md := entity.Metadata{
		OutPath:     sourcePath,
		Title:       m.Title,
		Description: m.Abstract,
	}
	if m.Authors != nil {
		md.Authors = strings.Split(*m.Authors, ";")
	}
	return md
}
