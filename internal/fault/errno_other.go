//go:build !unix

package fault

import (
	"errors"
	"io/fs"
	"syscall"
)

func LinkKind(err error) Kind {
	switch {
	case errors.Is(err, syscall.EXDEV):
		return KindCrossDevice
	case errors.Is(err, fs.ErrPermission):
		return KindPermission
	default:
		return KindLinkFailed
	}
}
