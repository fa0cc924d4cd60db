package entities

import "time"

// RunStatistics is the final, read-only summary of one run.
type RunStatistics struct {
	FilesScanned         int64         `json:"files_scanned"`
	DistinctDigests      int64         `json:"distinct_digests"`
	GroupsWithDuplicates int64         `json:"groups_with_duplicates"`
	DuplicatesFound      int64         `json:"duplicates_found"`
	AlreadyLinked        int64         `json:"already_linked"`
	DuplicatesRelinked   int64         `json:"duplicates_relinked"`
	DuplicatesFailed     int64         `json:"duplicates_failed"`
	BytesReclaimable     int64         `json:"bytes_reclaimable"`
	BytesReclaimed       int64         `json:"bytes_reclaimed"`
	ScanErrors           int64         `json:"scan_errors"`
	HashErrors           int64         `json:"hash_errors"`
	Duration             time.Duration `json:"duration_ns"`
	Errors               []error       `json:"-"`
}
