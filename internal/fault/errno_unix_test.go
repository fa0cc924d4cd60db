//go:build unix

package fault

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestLinkKind(t *testing.T) {
	tests := []struct {
		errno unix.Errno
		want  Kind
	}{
		{unix.EXDEV, KindCrossDevice},
		{unix.EACCES, KindPermission},
		{unix.EPERM, KindPermission},
		{unix.EROFS, KindPermission},
		{unix.EMLINK, KindLinkFailed},
		{unix.ENOSPC, KindLinkFailed},
	}

	for _, tt := range tests {
		t.Run(tt.errno.Error(), func(t *testing.T) {
			err := &os.LinkError{Op: "link", Old: "/a", New: "/b", Err: tt.errno}
			assert.Equal(t, tt.want, LinkKind(err))
		})
	}
}
