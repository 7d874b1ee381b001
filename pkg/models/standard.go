package models

// StandardRecord is one regulatory standard as emitted by the scraper.
// Records are external and only partially trusted: everything except ID,
// StandardNumber and Title is optional, and IDs may collide across files.
type StandardRecord struct {
	ID                  string   `json:"id"`
	StandardNumber      string   `json:"standardNumber"`
	Title               string   `json:"title"`
	Scope               string   `json:"scope,omitempty"`
	Source              string   `json:"source,omitempty"`
	SDOName             string   `json:"sdoName,omitempty"`
	ICSClassifications  []string `json:"icsClassifications,omitempty"`
	ICSCodes            []string `json:"icsCodes,omitempty"`
	Category            string   `json:"category,omitempty"`
	Subcategory         string   `json:"subcategory,omitempty"`
	RegulationReference string   `json:"regulationReference,omitempty"`
}

// Valid reports whether the record carries the fields required for indexing.
func (r StandardRecord) Valid() bool {
	return r.ID != "" && r.StandardNumber != "" && r.Title != ""
}

// IndexedDocument is the unit stored in the vector index: a normalized text
// blob that gets embedded, plus display attributes that never do.
type IndexedDocument struct {
	ID         string            `json:"id"`
	Text       string            `json:"text"`
	Attributes map[string]string `json:"attributes"`
}

// Source is one retrieved standard backing an answer.
type Source struct {
	ID             string  `json:"id"`
	StandardNumber string  `json:"standard_number"`
	Title          string  `json:"title"`
	Relevance      float64 `json:"relevance"`
}

// QueryResult is the answer to one compliance question. Sources are ordered
// by descending relevance, at most top-K of them. Not persisted anywhere.
type QueryResult struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}
