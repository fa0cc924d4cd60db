// Package planner turns duplicate groups into consolidation plan entries.
package planner

import (
	"github.com/soyunomas/relinker/internal/entities"
	"github.com/soyunomas/relinker/internal/index"
)

type Planner struct {
	strategy KeepStrategy
}

func New(strategy KeepStrategy) *Planner {
	return &Planner{strategy: strategy}
}

func (p *Planner) Strategy() KeepStrategy {
	return p.strategy
}

// Plan builds one entry per group that still has work to do, in index order.
func (p *Planner) Plan(idx *index.DuplicateIndex) []*entities.PlanEntry {
	var plan []*entities.PlanEntry
	for _, g := range idx.Duplicates() {
		if entry, ok := p.PlanGroup(g); ok {
			plan = append(plan, entry)
		}
	}
	return plan
}

// PlanGroup selects the canonical member of g and lists the duplicates to
// relink. Members already sharing the canonical inode go to AlreadyLinked.
// ok is false for singleton groups and for groups that are fully linked.
func (p *Planner) PlanGroup(g *entities.DuplicateGroup) (*entities.PlanEntry, bool) {
	if g.Count() < 2 {
		return nil, false
	}

	members := sortMembers(g.Files, p.strategy)
	entry := &entities.PlanEntry{
		Digest:    g.Digest,
		Canonical: members[0],
	}

	for _, f := range members[1:] {
		if f.SameFile(entry.Canonical) {
			entry.AlreadyLinked = append(entry.AlreadyLinked, f)
			continue
		}
		entry.Duplicates = append(entry.Duplicates, f)
	}

	if len(entry.Duplicates) == 0 {
		return entry, false
	}
	return entry, true
}
