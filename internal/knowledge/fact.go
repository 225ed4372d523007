package knowledge

import "strings"

// Fact is a single country/capital record retrieved from the knowledge graph.
// SubjectURI is the identity key used for deduplication and used-fact tracking.
type Fact struct {
	// SubjectURI is the resource IRI of the country, e.g.
	// "http://dbpedia.org/resource/Vietnam".
	SubjectURI string

	// SubjectLabel is the English country name.
	SubjectLabel string

	// RelatedURI is the resource IRI of the capital. Empty when unbound.
	RelatedURI string

	// RelatedLabel is the English capital name. Empty when unbound.
	RelatedLabel string

	// Population is the total population, nil when unknown or unparseable.
	Population *int64

	// ImageURL is the thumbnail URL. Empty when unbound.
	ImageURL string
}

// Key returns the identity key of the fact.
func (f Fact) Key() string {
	return f.SubjectURI
}

// Valid reports whether the fact carries the mandatory identity key and
// subject label.
func (f Fact) Valid() bool {
	return f.SubjectURI != "" && strings.TrimSpace(f.SubjectLabel) != ""
}

// HasCapital reports whether the related (capital) label is present.
func (f Fact) HasCapital() bool {
	return strings.TrimSpace(f.RelatedLabel) != ""
}
