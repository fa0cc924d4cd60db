// Package executor replaces duplicate files with hard links to their canonical file.
//
// A duplicate is never removed before its replacement exists: the canonical
// file is first linked under a temporary name next to the duplicate, and that
// name is then renamed over the duplicate. rename(2) is atomic within a
// directory, so at every instant the duplicate path holds either its original
// content or the canonical inode.
package executor

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/soyunomas/relinker/internal/entities"
	"github.com/soyunomas/relinker/internal/fault"
	"github.com/soyunomas/relinker/internal/fsid"
	"github.com/soyunomas/relinker/internal/logger"
)

const (
	tempMarker    = ".relink-"
	maxTempTries  = 8
	maxBaseLength = 200
)

// Options configures an Executor.
type Options struct {
	DryRun bool
	// FS defaults to OSFS.
	FS FS
}

// Result is the outcome for one duplicate.
type Result struct {
	Canonical *entities.FileRecord
	Duplicate *entities.FileRecord
	// Size is the duplicate's size measured before any mutation.
	Size int64
	// Skipped is set when the duplicate already shared the canonical inode.
	Skipped bool
	DryRun  bool
	Err     error
}

// Executor applies plan entries sequentially.
type Executor struct {
	fs     FS
	dryRun bool
	log    *logrus.Entry
}

func New(opts Options) *Executor {
	fs := opts.FS
	if fs == nil {
		fs = OSFS{}
	}
	return &Executor{
		fs:     fs,
		dryRun: opts.DryRun,
		log:    logger.GetLogger("executor"),
	}
}

// Execute relinks every duplicate of entry, reporting each outcome to onResult.
// A failing duplicate never stops the others. Cancellation is checked before
// each duplicate; a relink already in progress always completes. The returned
// error is non-nil only when ctx ended the loop early.
func (e *Executor) Execute(ctx context.Context, entry *entities.PlanEntry, onResult func(Result)) error {
	for _, dup := range entry.Duplicates {
		if err := ctx.Err(); err != nil {
			return err
		}

		res := e.Relink(entry.Canonical, dup)
		if onResult != nil {
			onResult(res)
		}
	}
	return nil
}

// Relink makes dup's path refer to canonical's inode.
func (e *Executor) Relink(canonical, dup *entities.FileRecord) Result {
	res := Result{Canonical: canonical, Duplicate: dup, DryRun: e.dryRun}

	canonInfo, err := e.verify(canonical)
	if err != nil {
		res.Err = err
		return res
	}

	dupInfo, err := e.verify(dup)
	if err != nil {
		res.Err = err
		return res
	}
	res.Size = dupInfo.Size

	if dupInfo.ID == canonInfo.ID {
		res.Skipped = true
		return res
	}

	if dupInfo.ID.Device != canonInfo.ID.Device {
		res.Err = fault.Exec(fault.KindCrossDevice, dup.Path,
			fmt.Sprintf("canonical %q is on device %d, duplicate on device %d; cannot link",
				canonical.Path, canonInfo.ID.Device, dupInfo.ID.Device), nil)
		return res
	}

	if e.dryRun {
		e.log.Debugf("Dry-run enabled, skipping relink of %q", dup.Path)
		return res
	}

	tmp, err := e.linkTemp(canonical.Path, dup.Path)
	if err != nil {
		res.Err = fault.Exec(fault.LinkKind(err), dup.Path, "cannot link canonical next to", err)
		return res
	}

	if err := e.fs.Rename(tmp, dup.Path); err != nil {
		if rmErr := e.fs.Remove(tmp); rmErr != nil {
			e.log.WithError(rmErr).Errorf("Failed removing temporary link %q", tmp)
		}
		res.Err = fault.Exec(fault.KindRenameFailed, dup.Path, "cannot replace", err)
		return res
	}

	return res
}

// verify re-reads rec's identity and rejects it if the file changed since it was hashed.
func (e *Executor) verify(rec *entities.FileRecord) (fsid.Info, error) {
	info, err := e.fs.Lstat(rec.Path)
	if err != nil {
		return info, fault.Exec(fault.KindChanged, rec.Path, "cannot stat", err)
	}
	if !info.Mode.IsRegular() {
		return info, fault.Exec(fault.KindChanged, rec.Path, "no longer a regular file", nil)
	}
	if !info.Matches(rec) {
		return info, fault.Exec(fault.KindChanged, rec.Path, "modified since scan", nil)
	}
	return info, nil
}

// linkTemp hard links target under a fresh temporary name in dup's directory.
func (e *Executor) linkTemp(target, dup string) (string, error) {
	var err error
	for i := 0; i < maxTempTries; i++ {
		tmp := tempName(dup)
		err = e.fs.Link(target, tmp)
		if err == nil {
			return tmp, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", err
		}
	}
	return "", err
}

func tempName(path string) string {
	base := filepath.Base(path)
	if len(base) > maxBaseLength {
		base = base[:maxBaseLength]
	}
	return filepath.Join(filepath.Dir(path), "."+base+tempMarker+strconv.FormatUint(rand.Uint64(), 36))
}
