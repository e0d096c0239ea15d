// Package index maintains named document indexes on top of the B+ tree
// engine.
//
// # Overview
//
// A Manager owns a data directory holding a YAML catalog and one tree
// file per index. Each index covers the document field of the same name
// and maps field values to document ids:
//
//   - Unique indexes hold at most one id per value
//   - Duplicate indexes hold any number of ids per value
//   - Substring indexes key ids by the trigrams of each value
//
// # Usage
//
//	m, err := index.Open("/var/lib/obaidx", index.Options{Logger: logger})
//	if err != nil {
//	    return err
//	}
//	defer m.Close()
//
//	m.CreateIndex("uid", index.IndexUnique)
//	m.CreateIndex("cn", index.IndexSubstring)
//
//	doc := index.NewDocument(42)
//	doc.Set("uid", "alice")
//	doc.Set("cn", "Alice Admin")
//	if err := m.IndexDocument(doc); err != nil {
//	    return err
//	}
//
//	ids, err := m.Lookup("uid", "alice")     // [42]
//	ids, err = m.Search("cn", "*admin*")      // candidates, confirm with MatchesPattern
//
// # Layout
//
//	<dir>/catalog.yaml   index names, types and files
//	<dir>/<name>.idx     Tree[string, uint64]
//
// The catalog is rewritten through a temporary file and renamed into
// place, so a crash leaves either the old or the new catalog.
package index
