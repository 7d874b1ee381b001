// Package dedup resolves duplicate standard identifiers across input files.
package dedup

import "github.com/mfenderov/standards-rag/pkg/models"

// Merge collapses records sharing an ID into one record per ID. Records are
// processed in input order and the first-seen record wins, with a single
// override: a later record with scope text replaces a kept record without
// it. Scope is the highest-value retrieval signal, so presence of scope
// beats arrival order in either direction.
//
// Merge is a fixed point: running it on its own output changes nothing.
func Merge(records []models.StandardRecord) map[string]models.StandardRecord {
	kept := make(map[string]models.StandardRecord, len(records))
	for _, rec := range records {
		cur, ok := kept[rec.ID]
		if !ok {
			kept[rec.ID] = rec
			continue
		}
		if cur.Scope == "" && rec.Scope != "" {
			kept[rec.ID] = rec
		}
	}
	return kept
}
