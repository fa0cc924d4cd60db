package entities

import (
	"encoding/hex"
	"fmt"
	"time"
)

// FileID identifies the storage object behind a path (device + inode).
type FileID struct {
	Device uint64 `json:"device_id"`
	Inode  uint64 `json:"inode"`
}

func (f FileID) String() string {
	return fmt.Sprintf("%d:%d", f.Device, f.Inode)
}

// Digest is the raw output of the content hash.
type Digest []byte

func (d Digest) Hex() string {
	return hex.EncodeToString(d)
}

// Prefix returns the first n hex characters, for display.
func (d Digest) Prefix(n int) string {
	h := d.Hex()
	if len(h) <= n {
		return h
	}
	return h[:n]
}

// Key is usable as a map key.
func (d Digest) Key() string {
	return string(d)
}

// FileRecord is a hashed regular file. Treat as immutable once built.
type FileRecord struct {
	Path    string    `json:"path"`
	Digest  Digest    `json:"-"`
	ID      FileID    `json:"id"`
	Size    int64     `json:"size_bytes"`
	ModTime time.Time `json:"mod_time"`
	// Seq is the scan discovery position.
	Seq int `json:"-"`
}

// SameFile reports whether both records point at the same inode.
func (f *FileRecord) SameFile(other *FileRecord) bool {
	return f.ID == other.ID
}

// DuplicateGroup holds every record sharing one digest, in discovery order.
type DuplicateGroup struct {
	Digest Digest        `json:"-"`
	Files  []*FileRecord `json:"files"`
}

// Add appends f in discovery order.
func (g *DuplicateGroup) Add(f *FileRecord) {
	g.Files = append(g.Files, f)
}

func (g *DuplicateGroup) Count() int {
	return len(g.Files)
}

// PlanEntry is one canonical file plus the duplicates to relink onto it.
type PlanEntry struct {
	Digest     Digest        `json:"-"`
	Canonical  *FileRecord   `json:"canonical"`
	Duplicates []*FileRecord `json:"duplicates"`
	// AlreadyLinked members share the canonical inode and need no work.
	AlreadyLinked []*FileRecord `json:"already_linked,omitempty"`
}

// ReclaimableBytes is the sum of the duplicate sizes.
func (p *PlanEntry) ReclaimableBytes() int64 {
	var n int64
	for _, d := range p.Duplicates {
		n += d.Size
	}
	return n
}
