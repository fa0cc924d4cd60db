package main

import (
	"encoding/json"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/soyunomas/relinker/internal/engine"
	"github.com/soyunomas/relinker/internal/entities"
	"github.com/soyunomas/relinker/internal/stats"
)

const digestPrefixLen = 8

type multiReporter []engine.Reporter

func (m multiReporter) Report(ev engine.Event) {
	for _, r := range m {
		r.Report(ev)
	}
}

// logReporter turns engine events into log lines.
type logReporter struct {
	log *logrus.Entry
}

func newLogReporter(log *logrus.Entry) *logReporter {
	return &logReporter{log: log}
}

func (l *logReporter) Report(ev engine.Event) {
	switch ev.Type {
	case engine.EventFileScanned:
		l.log.Tracef("Scanned %q", ev.Path)

	case engine.EventScanError, engine.EventHashError:
		l.log.WithError(ev.Err).Warn("Skipping unreadable entry")

	case engine.EventGroup:
		e := ev.Entry
		l.log.Infof("Duplicate group %s (%s): keeping %q",
			e.Digest.Prefix(digestPrefixLen), humanize.IBytes(uint64(e.Canonical.Size)), e.Canonical.Path)
		for _, d := range e.Duplicates {
			l.log.Infof("  duplicate: %q", d.Path)
		}
		for _, d := range e.AlreadyLinked {
			l.log.Debugf("  already linked: %q", d.Path)
		}

	case engine.EventRelinked:
		l.log.Infof("Relinked %q -> %q", ev.Result.Duplicate.Path, ev.Result.Canonical.Path)

	case engine.EventWouldRelink:
		l.log.Infof("Dry run, would relink %q -> %q", ev.Result.Duplicate.Path, ev.Result.Canonical.Path)

	case engine.EventSkipped:
		l.log.Debugf("Already linked, skipped %q", ev.Result.Duplicate.Path)

	case engine.EventRelinkFailed:
		l.log.WithError(ev.Err).Errorf("Failed relinking %q", ev.Result.Duplicate.Path)

	case engine.EventSummary:
		l.summary(ev.Stats)
	}
}

func (l *logReporter) summary(s *entities.RunStatistics) {
	l.log.Info("-----")
	l.log.Infof("Files processed: %d", s.FilesScanned)
	l.log.Infof("Unique digests: %d", s.DistinctDigests)
	l.log.Infof("Groups with duplicates: %d (%d duplicates, %d already linked)",
		s.GroupsWithDuplicates, s.DuplicatesFound, s.AlreadyLinked)
	l.log.Infof("Duplicates relinked: %d, failed: %d", s.DuplicatesRelinked, s.DuplicatesFailed)
	l.log.Infof("Bytes reclaimed: %s of %s reclaimable",
		humanize.IBytes(uint64(s.BytesReclaimed)), humanize.IBytes(uint64(s.BytesReclaimable)))

	if len(s.Errors) > 0 {
		counts := stats.ErrorsByCode(*s)
		fields := logrus.Fields{}
		for code, n := range counts {
			fields[string(code)] = n
		}
		l.log.WithFields(fields).Warnf("%d errors during run", len(s.Errors))
	}
	l.log.Infof("Finished in %s", s.Duration.Round(time.Millisecond))
}

type Report struct {
	Summary  Summary       `json:"summary"`
	Groups   []GroupResult `json:"groups"`
	Errors   []string      `json:"errors"`
	Metadata Metadata      `json:"metadata"`
}

type Metadata struct {
	ScannedPath string    `json:"scanned_path"`
	Strategy    string    `json:"strategy"`
	Algorithm   string    `json:"algorithm"`
	DryRun      bool      `json:"dry_run"`
	Interrupted bool      `json:"interrupted"`
	Timestamp   time.Time `json:"timestamp"`
	Duration    string    `json:"duration_human"`
}

type Summary struct {
	entities.RunStatistics
	ErrorsByCode          map[string]int `json:"errors_by_code,omitempty"`
	BytesReclaimedHuman   string         `json:"bytes_reclaimed_human"`
	BytesReclaimableHuman string         `json:"bytes_reclaimable_human"`
}

type GroupResult struct {
	Digest        string                 `json:"digest"`
	Size          int64                  `json:"file_size"`
	Canonical     *entities.FileRecord   `json:"canonical"`
	Duplicates    []*entities.FileRecord `json:"duplicates"`
	AlreadyLinked []*entities.FileRecord `json:"already_linked"`
	Failed        []string               `json:"failed,omitempty"`
}

// jsonReport collects groups while the run progresses and is written once it ends.
type jsonReport struct {
	meta   Metadata
	groups []GroupResult
	byPath map[string]int
}

func newJSONReport(root string, opts engine.Options) *jsonReport {
	return &jsonReport{
		meta: Metadata{
			ScannedPath: root,
			Strategy:    opts.Strategy.String(),
			Algorithm:   opts.Algorithm,
			DryRun:      opts.DryRun,
			Timestamp:   time.Now(),
		},
		byPath: make(map[string]int),
	}
}

func (j *jsonReport) Report(ev engine.Event) {
	switch ev.Type {
	case engine.EventGroup:
		e := ev.Entry
		j.byPath[e.Canonical.Path] = len(j.groups)
		j.groups = append(j.groups, GroupResult{
			Digest:        e.Digest.Hex(),
			Size:          e.Canonical.Size,
			Canonical:     e.Canonical,
			Duplicates:    nonNil(e.Duplicates),
			AlreadyLinked: nonNil(e.AlreadyLinked),
		})
	case engine.EventRelinkFailed:
		if i, ok := j.byPath[ev.Result.Canonical.Path]; ok {
			j.groups[i].Failed = append(j.groups[i].Failed, ev.Result.Duplicate.Path)
		}
	}
}

func (j *jsonReport) build(res *engine.Result) Report {
	s := res.Stats
	rep := Report{
		Summary: Summary{
			RunStatistics:         s,
			BytesReclaimedHuman:   humanize.IBytes(uint64(s.BytesReclaimed)),
			BytesReclaimableHuman: humanize.IBytes(uint64(s.BytesReclaimable)),
		},
		Groups:   j.groups,
		Errors:   []string{},
		Metadata: j.meta,
	}
	if rep.Groups == nil {
		rep.Groups = []GroupResult{}
	}

	rep.Metadata.Interrupted = res.Interrupted
	rep.Metadata.Duration = s.Duration.String()

	if len(s.Errors) > 0 {
		rep.Summary.ErrorsByCode = make(map[string]int)
		for code, n := range stats.ErrorsByCode(s) {
			rep.Summary.ErrorsByCode[string(code)] = n
		}
		for _, err := range s.Errors {
			rep.Errors = append(rep.Errors, err.Error())
		}
	}
	return rep
}

func (j *jsonReport) write(w io.Writer, res *engine.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(j.build(res))
}

func nonNil(files []*entities.FileRecord) []*entities.FileRecord {
	if files == nil {
		return []*entities.FileRecord{}
	}
	return files
}
