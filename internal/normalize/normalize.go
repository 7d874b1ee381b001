// Package normalize turns raw standard records into the text and attributes
// stored in the vector index.
package normalize

import (
	"strconv"
	"strings"

	"github.com/mfenderov/standards-rag/pkg/models"
)

// Attribute keys present on every indexed document.
const (
	AttrStandardNumber = "standardNumber"
	AttrTitle          = "title"
	AttrSource         = "source"
	AttrHasScope       = "hasScope"
)

// Document flattens a standard record into the text blob that gets embedded
// and the attribute map stored alongside it. Fields are newline-joined in a
// fixed order; embeddings are sensitive to term proximity, so a stable order
// keeps them reproducible across runs. Empty fields are omitted entirely.
//
// The caller must validate ID, StandardNumber and Title before invoking this.
func Document(rec models.StandardRecord) (string, map[string]string) {
	parts := make([]string, 0, 7)
	add := func(s string) {
		if s != "" {
			parts = append(parts, s)
		}
	}

	add(rec.StandardNumber)
	add(rec.Title)
	add(rec.Scope)
	if codes := firstNonEmptyList(rec.ICSClassifications, rec.ICSCodes); len(codes) > 0 {
		parts = append(parts, strings.Join(codes, ", "))
	}
	add(rec.Category)
	add(rec.Subcategory)
	if rec.RegulationReference != "" {
		parts = append(parts, "EU Regulation "+rec.RegulationReference)
	}

	attrs := map[string]string{
		AttrStandardNumber: rec.StandardNumber,
		AttrTitle:          rec.Title,
		AttrSource:         firstNonEmpty(rec.SDOName, rec.Source, "unknown"),
		AttrHasScope:       strconv.FormatBool(rec.Scope != ""),
	}

	return strings.Join(parts, "\n"), attrs
}

// firstNonEmpty evaluates an ordered list of candidate values, first
// non-empty wins. Keeps the fallback policy auditable in one place.
func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

// firstNonEmptyList is firstNonEmpty over code lists.
func firstNonEmptyList(candidates ...[]string) []string {
	for _, c := range candidates {
		if len(c) > 0 {
			return c
		}
	}
	return nil
}
