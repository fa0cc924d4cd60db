package executor

import (
	"os"

	"github.com/soyunomas/relinker/internal/fsid"
)

// FS is the set of filesystem calls the executor mutates through.
type FS interface {
	Lstat(name string) (fsid.Info, error)
	Link(oldname, newname string) error
	Rename(oldpath, newpath string) error
	Remove(name string) error
}

// OSFS is the real filesystem.
type OSFS struct{}

func (OSFS) Lstat(name string) (fsid.Info, error) { return fsid.Lstat(name) }
func (OSFS) Link(oldname, newname string) error   { return os.Link(oldname, newname) }
func (OSFS) Rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }
func (OSFS) Remove(name string) error             { return os.Remove(name) }
