//go:build unix

package fault

import (
	"errors"
	"io/fs"

	"golang.org/x/sys/unix"
)

// LinkKind classifies an error returned by link(2).
func LinkKind(err error) Kind {
	switch {
	case errors.Is(err, unix.EXDEV):
		return KindCrossDevice
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM), errors.Is(err, unix.EROFS),
		errors.Is(err, fs.ErrPermission):
		return KindPermission
	default:
		return KindLinkFailed
	}
}
