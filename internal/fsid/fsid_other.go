//go:build !unix

package fsid

import (
	"os"

	"github.com/soyunomas/relinker/internal/entities"
)

func sysIdentity(os.FileInfo) (entities.FileID, uint64, bool) {
	return entities.FileID{}, 0, false
}

func Fstat(f *os.File) (Info, error) {
	fi, err := f.Stat()
	if err != nil {
		return Info{}, err
	}
	info, _ := FromFileInfo(fi)
	return info, nil
}
