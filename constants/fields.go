package constants

// Production field names. These are the keys used by Production.Set and by
// the InputTypes/OutputTypes capability maps.
const (
	FieldPDF         = "pdf"
	FieldMetadata    = "metadata"
	FieldText        = "text"
	FieldArticleDict = "article_dict"
	FieldAuthors     = "authors"
	FieldTitle       = "title"
	FieldAbstract    = "abstract"
	FieldFigures     = "figures"
	FieldEquations   = "equations"
)
