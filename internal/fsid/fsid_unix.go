//go:build unix

package fsid

import (
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/soyunomas/relinker/internal/entities"
)

func sysIdentity(fi os.FileInfo) (entities.FileID, uint64, bool) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return entities.FileID{}, 0, false
	}
	return entities.FileID{
		Device: uint64(st.Dev),
		Inode:  uint64(st.Ino),
	}, uint64(st.Nlink), true
}

// Fstat reads the identity of an open descriptor.
func Fstat(f *os.File) (Info, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		return Info{}, &os.PathError{Op: "fstat", Path: f.Name(), Err: err}
	}

	sec, nsec := st.Mtim.Unix()
	return Info{
		ID: entities.FileID{
			Device: uint64(st.Dev),
			Inode:  uint64(st.Ino),
		},
		Nlink:   uint64(st.Nlink),
		Size:    int64(st.Size),
		ModTime: time.Unix(sec, nsec),
		Mode:    unixMode(uint32(st.Mode)),
	}, nil
}

func unixMode(m uint32) os.FileMode {
	mode := os.FileMode(m & 0o777)
	switch m & unix.S_IFMT {
	case unix.S_IFREG:
	case unix.S_IFDIR:
		mode |= os.ModeDir
	case unix.S_IFLNK:
		mode |= os.ModeSymlink
	case unix.S_IFIFO:
		mode |= os.ModeNamedPipe
	case unix.S_IFSOCK:
		mode |= os.ModeSocket
	case unix.S_IFCHR:
		mode |= os.ModeDevice | os.ModeCharDevice
	case unix.S_IFBLK:
		mode |= os.ModeDevice
	}
	return mode
}
