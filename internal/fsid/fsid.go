// Package fsid extracts the platform identity of a file: the device and inode
// pair that hard links share, plus the link count.
package fsid

import (
	"os"
	"time"

	"github.com/soyunomas/relinker/internal/entities"
)

// Info is the identity snapshot of a path at one instant.
type Info struct {
	ID      entities.FileID
	Nlink   uint64
	Size    int64
	ModTime time.Time
	Mode    os.FileMode
}

// Matches reports whether the file still looks like the scanned record.
func (i Info) Matches(rec *entities.FileRecord) bool {
	return i.ID == rec.ID && i.Size == rec.Size && i.ModTime.Equal(rec.ModTime)
}

// FromFileInfo builds an Info from an os.FileInfo.
// ok is false when the platform does not expose device and inode.
func FromFileInfo(fi os.FileInfo) (Info, bool) {
	info := Info{
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
		Mode:    fi.Mode(),
	}
	id, nlink, ok := sysIdentity(fi)
	info.ID = id
	info.Nlink = nlink
	return info, ok
}

// Lstat stats path without following symlinks.
func Lstat(path string) (Info, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return Info{}, err
	}
	info, _ := FromFileInfo(fi)
	return info, nil
}
