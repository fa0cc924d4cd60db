// Package stats aggregates run statistics from scanner, hasher and executor events.
package stats

import (
	"slices"
	"time"

	"github.com/soyunomas/relinker/internal/entities"
	"github.com/soyunomas/relinker/internal/fault"
)

// Collector accumulates RunStatistics. It has a single writer: the goroutine
// driving the run. It is not safe for concurrent use.
type Collector struct {
	s     entities.RunStatistics
	start time.Time
}

func New() *Collector {
	return &Collector{start: time.Now()}
}

func (c *Collector) FileScanned() {
	c.s.FilesScanned++
}

func (c *Collector) ScanFailed(err error) {
	c.s.ScanErrors++
	c.s.Errors = append(c.s.Errors, err)
}

// DigestComputed records a hashed file; isNew is true for a digest seen for the first time.
func (c *Collector) DigestComputed(isNew bool) {
	if isNew {
		c.s.DistinctDigests++
	}
}

func (c *Collector) HashFailed(err error) {
	c.s.HashErrors++
	c.s.Errors = append(c.s.Errors, err)
}

// GroupFound records a digest with size members.
func (c *Collector) GroupFound(size int) {
	if size < 2 {
		return
	}
	c.s.GroupsWithDuplicates++
	c.s.DuplicatesFound += int64(size - 1)
}

// Planned records the work and the already-linked members of a plan entry.
func (c *Collector) Planned(entry *entities.PlanEntry) {
	c.s.AlreadyLinked += int64(len(entry.AlreadyLinked))
	c.s.BytesReclaimable += entry.ReclaimableBytes()
}

// Relinked records a duplicate whose path now refers to the canonical inode.
// size must be the duplicate's size before mutation.
func (c *Collector) Relinked(size int64) {
	c.s.DuplicatesRelinked++
	c.s.BytesReclaimed += size
}

func (c *Collector) RelinkFailed(err error) {
	c.s.DuplicatesFailed++
	c.s.Errors = append(c.s.Errors, err)
}

// Snapshot returns a copy of the statistics so far.
func (c *Collector) Snapshot() entities.RunStatistics {
	out := c.s
	out.Errors = slices.Clone(c.s.Errors)
	out.Duration = time.Since(c.start)
	return out
}

// ErrorsByCode counts the recorded errors per fault code.
func ErrorsByCode(s entities.RunStatistics) map[fault.Code]int {
	counts := make(map[fault.Code]int)
	for _, err := range s.Errors {
		counts[fault.CodeOf(err)]++
	}
	return counts
}
