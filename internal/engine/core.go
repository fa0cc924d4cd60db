// Package engine drives a consolidation run.
//
// A run has two strictly ordered phases. Phase 1 walks the tree, hashes every
// candidate on a worker pool and folds the results into a DuplicateIndex in
// discovery order. Phase 2 starts only once the whole tree is indexed: it plans
// every duplicate group and relinks the duplicates one at a time.
package engine

import (
	"context"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/soyunomas/relinker/internal/entities"
	"github.com/soyunomas/relinker/internal/executor"
	"github.com/soyunomas/relinker/internal/hasher"
	"github.com/soyunomas/relinker/internal/index"
	"github.com/soyunomas/relinker/internal/logger"
	"github.com/soyunomas/relinker/internal/planner"
	"github.com/soyunomas/relinker/internal/scanner"
	"github.com/soyunomas/relinker/internal/stats"
)

type Options struct {
	Scan      scanner.Config
	Algorithm string
	ChunkSize int
	// Workers is the hashing pool size; 0 means runtime.NumCPU.
	Workers  int
	Strategy planner.KeepStrategy
	DryRun   bool
	// FS defaults to the real filesystem.
	FS       executor.FS
	Reporter Reporter
}

// Result is what a run leaves behind.
type Result struct {
	Stats entities.RunStatistics
	// Plan holds the entries that had duplicates to relink.
	Plan []*entities.PlanEntry
	// Interrupted is set when ctx ended the run early.
	Interrupted bool
}

type Runner struct {
	opts     Options
	scanner  *scanner.FileScanner
	hasher   *hasher.ContentHasher
	planner  *planner.Planner
	executor *executor.Executor
	reporter Reporter
	log      *logrus.Entry
}

func New(opts Options) (*Runner, error) {
	h, err := hasher.New(opts.Algorithm, opts.ChunkSize)
	if err != nil {
		return nil, err
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	rep := opts.Reporter
	if rep == nil {
		rep = Nop
	}

	return &Runner{
		opts:     opts,
		scanner:  scanner.New(opts.Scan),
		hasher:   h,
		planner:  planner.New(opts.Strategy),
		executor: executor.New(executor.Options{DryRun: opts.DryRun, FS: opts.FS}),
		reporter: rep,
		log:      logger.GetLogger("engine"),
	}, nil
}

// Run consolidates the tree below root. Per-file failures are recorded in the
// statistics; the returned error is only ever ctx's error, in which case the
// partial Result is still returned. Cancellation during phase 1 skips phase 2
// entirely.
func (r *Runner) Run(ctx context.Context, root string) (*Result, error) {
	col := stats.New()
	res := &Result{}

	r.log.Debugf("Indexing %q with %s on %d workers", root, r.hasher.Algorithm().Name, r.opts.Workers)
	idx := r.buildIndex(ctx, root, col)
	if err := ctx.Err(); err != nil {
		return r.finish(res, col, err)
	}
	r.log.Debugf("Indexed %d files into %d digests", idx.Files(), idx.Len())

	for _, g := range idx.Duplicates() {
		col.GroupFound(g.Count())

		entry, ok := r.planner.PlanGroup(g)
		col.Planned(entry)
		r.reporter.Report(Event{Type: EventGroup, Entry: entry})
		if ok {
			res.Plan = append(res.Plan, entry)
		}
	}

	for _, entry := range res.Plan {
		err := r.executor.Execute(ctx, entry, func(er executor.Result) {
			r.record(col, er)
		})
		if err != nil {
			return r.finish(res, col, err)
		}
	}

	return r.finish(res, col, nil)
}

func (r *Runner) record(col *stats.Collector, er executor.Result) {
	ev := Event{Result: &er}
	switch {
	case er.Err != nil:
		col.RelinkFailed(er.Err)
		ev.Type, ev.Err = EventRelinkFailed, er.Err
	case er.Skipped:
		ev.Type = EventSkipped
	case er.DryRun:
		ev.Type = EventWouldRelink
	default:
		col.Relinked(er.Size)
		ev.Type = EventRelinked
	}
	r.reporter.Report(ev)
}

func (r *Runner) finish(res *Result, col *stats.Collector, err error) (*Result, error) {
	res.Stats = col.Snapshot()
	res.Interrupted = err != nil
	r.reporter.Report(Event{Type: EventSummary, Stats: &res.Stats})
	return res, err
}

type hashJob struct {
	seq  int
	cand scanner.Candidate
	err  error
}

type hashResult struct {
	seq  int
	path string
	rec  *entities.FileRecord
	// scanErr and hashErr are mutually exclusive; both nil with a nil rec
	// means the job was abandoned because ctx ended.
	scanErr error
	hashErr error
}

// buildIndex runs phase 1. Workers only hash; the calling goroutine is the
// single writer of the index and the collector, and it applies results in
// scan order so that group membership order is the discovery order.
func (r *Runner) buildIndex(ctx context.Context, root string, col *stats.Collector) *index.DuplicateIndex {
	jobs := make(chan hashJob, r.opts.Workers*2)
	results := make(chan hashResult, r.opts.Workers*2)

	go func() {
		defer close(jobs)
		seq := 0
		for cand, err := range r.scanner.Files(ctx, root) {
			select {
			case jobs <- hashJob{seq: seq, cand: cand, err: err}:
				seq++
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < r.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- r.hashOne(ctx, j)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	idx := index.New()
	pending := make(map[int]hashResult)
	next := 0
	for res := range results {
		pending[res.seq] = res
		for {
			p, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			r.apply(idx, col, p)
		}
	}
	return idx
}

func (r *Runner) hashOne(ctx context.Context, j hashJob) hashResult {
	if j.err != nil {
		return hashResult{seq: j.seq, scanErr: j.err}
	}

	path := j.cand.Path
	digest, info, err := r.hasher.Hash(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return hashResult{seq: j.seq, path: path}
		}
		return hashResult{seq: j.seq, path: path, hashErr: err}
	}
	if info.ID != j.cand.Info.ID {
		r.log.Debugf("%q was replaced between scan and hash; indexing the hashed file", path)
	}

	return hashResult{
		seq:  j.seq,
		path: path,
		rec: &entities.FileRecord{
			Path:    path,
			Digest:  digest,
			ID:      info.ID,
			Size:    info.Size,
			ModTime: info.ModTime,
			Seq:     j.seq,
		},
	}
}

func (r *Runner) apply(idx *index.DuplicateIndex, col *stats.Collector, res hashResult) {
	switch {
	case res.scanErr != nil:
		col.ScanFailed(res.scanErr)
		r.reporter.Report(Event{Type: EventScanError, Err: res.scanErr})
		return
	case res.rec == nil && res.hashErr == nil:
		// abandoned when ctx ended; the file was never hashed
		return
	}

	col.FileScanned()
	r.reporter.Report(Event{Type: EventFileScanned, Path: res.path})

	switch {
	case res.hashErr != nil:
		col.HashFailed(res.hashErr)
		r.reporter.Report(Event{Type: EventHashError, Err: res.hashErr})
	case res.rec != nil:
		col.DigestComputed(idx.Insert(res.rec))
	}
}
