package planner

import (
	"fmt"
	"slices"
	"strings"

	"github.com/soyunomas/relinker/internal/entities"
)

// KeepStrategy decides which member of a group becomes canonical.
type KeepStrategy int

const (
	KeepOldest KeepStrategy = iota // default: earliest modification time
	KeepNewest
	KeepShortestPath
	KeepLongestPath
)

var strategyNames = map[KeepStrategy]string{
	KeepOldest:       "oldest",
	KeepNewest:       "newest",
	KeepShortestPath: "shortest",
	KeepLongestPath:  "longest",
}

func (s KeepStrategy) String() string {
	if n, ok := strategyNames[s]; ok {
		return n
	}
	return fmt.Sprintf("KeepStrategy(%d)", int(s))
}

// ParseStrategy maps a configured name onto a KeepStrategy.
func ParseStrategy(name string) (KeepStrategy, error) {
	for s, n := range strategyNames {
		if strings.EqualFold(n, name) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown keep strategy: %q (supported: oldest, newest, shortest, longest)", name)
}

// sortMembers returns a copy of files ordered so that index 0 is the keeper.
// Ties on the strategy key fall back to scan discovery order, never to path
// names, so the result is reproducible on the same tree.
func sortMembers(files []*entities.FileRecord, strategy KeepStrategy) []*entities.FileRecord {
	out := slices.Clone(files)

	slices.SortStableFunc(out, func(f1, f2 *entities.FileRecord) int {
		switch strategy {
		case KeepOldest:
			if c := f1.ModTime.Compare(f2.ModTime); c != 0 {
				return c
			}
		case KeepNewest:
			if c := f2.ModTime.Compare(f1.ModTime); c != 0 {
				return c
			}
		case KeepShortestPath:
			if len(f1.Path) != len(f2.Path) {
				return len(f1.Path) - len(f2.Path)
			}
		case KeepLongestPath:
			if len(f1.Path) != len(f2.Path) {
				return len(f2.Path) - len(f1.Path)
			}
		}
		return f1.Seq - f2.Seq
	})

	return out
}
