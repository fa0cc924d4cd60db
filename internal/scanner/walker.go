package scanner

import (
	"context"
	"io/fs"
	"iter"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/sirupsen/logrus"

	"github.com/soyunomas/relinker/internal/fault"
	"github.com/soyunomas/relinker/internal/fsid"
	"github.com/soyunomas/relinker/internal/logger"
)

// Config defines the rules for a scan.
type Config struct {
	MinSize  int64    // files smaller than this are ignored
	Excludes []string // directory base names that are never entered
	Parallel bool     // walk with fastwalk, then restore discovery order
	Workers  int      // fastwalk workers; 0 picks the library default
}

// Candidate is a regular file found by the scan.
type Candidate struct {
	Path string
	Info fsid.Info
}

// fastWalk is replaced in tests to inject directory read failures.
var fastWalk = fastwalk.Walk

// FileScanner walks a tree and yields regular files.
type FileScanner struct {
	cfg        Config
	excludeMap map[string]struct{}
	log        *logrus.Entry
}

// New creates a scanner for cfg.
func New(cfg Config) *FileScanner {
	exMap := make(map[string]struct{}, len(cfg.Excludes))
	for _, e := range cfg.Excludes {
		exMap[e] = struct{}{}
	}

	return &FileScanner{
		cfg:        cfg,
		excludeMap: exMap,
		log:        logger.GetLogger("scanner"),
	}
}

// Files returns a lazy, single-use sequence over the regular files below root.
//
// Each element is either a Candidate with a nil error, or a zero Candidate with
// a *fault.Error of code SCAN describing an entry that could not be read. The
// walk always continues past such entries. Directories, symlinks and special
// files are never yielded. Iteration stops early when ctx is done.
func (s *FileScanner) Files(ctx context.Context, root string) iter.Seq2[Candidate, error] {
	return func(yield func(Candidate, error) bool) {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			yield(Candidate{}, fault.Scan(root, err))
			return
		}

		if s.cfg.Parallel {
			s.walkParallel(ctx, absRoot, yield)
			return
		}
		s.walkSequential(ctx, absRoot, yield)
	}
}

func (s *FileScanner) walkSequential(ctx context.Context, root string, yield func(Candidate, error) bool) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return filepath.SkipAll
		}

		c, ctrl, scanErr := s.visit(path, d, err)
		if c != nil || scanErr != nil {
			if !yield(derefCandidate(c), scanErr) {
				return filepath.SkipAll
			}
		}
		return ctrl
	})
}

type found struct {
	c   Candidate
	err error
}

func (s *FileScanner) walkParallel(ctx context.Context, root string, yield func(Candidate, error) bool) {
	var (
		mu      sync.Mutex
		results []found
	)

	conf := &fastwalk.Config{
		Follow:     false,
		NumWorkers: s.cfg.Workers,
	}
	if conf.NumWorkers <= 0 {
		conf.NumWorkers = fastwalk.DefaultNumWorkers()
	}

	walkErr := fastWalk(conf, root, func(path string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		c, ctrl, scanErr := s.visit(path, d, err)
		if c != nil || scanErr != nil {
			mu.Lock()
			results = append(results, found{c: derefCandidate(c), err: scanErr})
			mu.Unlock()
		}
		return ctrl
	})
	if walkErr != nil && ctx.Err() == nil {
		results = append(results, found{err: fault.Scan(root, walkErr)})
	}

	// fastwalk visits in arbitrary order; sort into the order WalkDir would use
	// so that scan-order tie breaks stay reproducible.
	slices.SortStableFunc(results, func(a, b found) int {
		return comparePaths(foundPath(a), foundPath(b))
	})

	for _, r := range results {
		if ctx.Err() != nil {
			return
		}
		if !yield(r.c, r.err) {
			return
		}
	}
}

// visit classifies one walk callback. It returns a candidate to yield, a walk
// control value (SkipDir) and a scan error to report; any may be nil.
//
// A callback carrying err reports a directory that could not be read, so there
// is nothing left to skip. fastwalk treats any non-nil return from that
// callback as fatal to the whole walk, so ctrl is always nil here.
func (s *FileScanner) visit(path string, d fs.DirEntry, err error) (c *Candidate, ctrl, scanErr error) {
	if err != nil {
		s.log.WithError(err).Debugf("Cannot read %q", path)
		return nil, nil, fault.Scan(path, err)
	}

	if d.IsDir() {
		if _, ok := s.excludeMap[d.Name()]; ok {
			s.log.Tracef("Skipping excluded directory: %q", path)
			return nil, filepath.SkipDir, nil
		}
		return nil, nil, nil
	}

	if !d.Type().IsRegular() {
		s.log.Tracef("Skipping non-regular file: %q", path)
		return nil, nil, nil
	}

	fi, err := d.Info()
	if err != nil {
		return nil, nil, fault.Scan(path, err)
	}
	if !fi.Mode().IsRegular() {
		return nil, nil, nil
	}

	if fi.Size() < s.cfg.MinSize {
		s.log.Tracef("Skipping small file: %q", path)
		return nil, nil, nil
	}

	info, _ := fsid.FromFileInfo(fi)
	return &Candidate{Path: path, Info: info}, nil, nil
}

func derefCandidate(c *Candidate) Candidate {
	if c == nil {
		return Candidate{}
	}
	return *c
}

func foundPath(f found) string {
	if f.c.Path != "" {
		return f.c.Path
	}
	if e, ok := f.err.(*fault.Error); ok {
		return e.Path
	}
	return ""
}

// comparePaths orders paths element by element, matching a lexical
// depth-first walk.
func comparePaths(a, b string) int {
	as := strings.Split(filepath.ToSlash(a), "/")
	bs := strings.Split(filepath.ToSlash(b), "/")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := strings.Compare(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return len(as) - len(bs)
}
