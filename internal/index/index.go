// Package index groups hashed files by digest.
package index

import (
	"github.com/soyunomas/relinker/internal/entities"
)

// DuplicateIndex maps a digest to the records that share it. It is built once
// per run by a single writer and only read afterwards; there is no removal.
type DuplicateIndex struct {
	groups map[string]*entities.DuplicateGroup
	order  []*entities.DuplicateGroup
	files  int
}

func New() *DuplicateIndex {
	return &DuplicateIndex{
		groups: make(map[string]*entities.DuplicateGroup),
	}
}

// Insert adds rec under its digest and reports whether the digest was new.
func (x *DuplicateIndex) Insert(rec *entities.FileRecord) bool {
	x.files++

	key := rec.Digest.Key()
	if g, ok := x.groups[key]; ok {
		g.Add(rec)
		return false
	}

	g := &entities.DuplicateGroup{Digest: rec.Digest}
	g.Add(rec)
	x.groups[key] = g
	x.order = append(x.order, g)
	return true
}

// Lookup returns the group for digest.
func (x *DuplicateIndex) Lookup(digest entities.Digest) (*entities.DuplicateGroup, bool) {
	g, ok := x.groups[digest.Key()]
	return g, ok
}

// Groups returns every group ordered by the discovery of its first member.
func (x *DuplicateIndex) Groups() []*entities.DuplicateGroup {
	return x.order
}

// Duplicates returns only the groups with more than one member.
func (x *DuplicateIndex) Duplicates() []*entities.DuplicateGroup {
	var out []*entities.DuplicateGroup
	for _, g := range x.order {
		if g.Count() > 1 {
			out = append(out, g)
		}
	}
	return out
}

// Len is the number of distinct digests.
func (x *DuplicateIndex) Len() int {
	return len(x.order)
}

// Files is the number of inserted records.
func (x *DuplicateIndex) Files() int {
	return x.files
}
