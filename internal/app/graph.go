package app

import (
	"gauntlet-service/internal/domain"
)

// TerminalMarker is the successor reported for the last level in the graph.
const TerminalMarker = "complete"

// LevelGraph is the fixed ordered sequence of levels with an explicit
// successor mapping. It is immutable after construction.
type LevelGraph struct {
	order           []string
	index           map[string]int
	completionPages map[string]string
}

// NewLevelGraph builds a graph from levels in unlock order. completionPages
// optionally maps a level to the redirect shown when it closes out a chapter.
func NewLevelGraph(order []string, completionPages map[string]string) *LevelGraph {
	index := make(map[string]int, len(order))
	for i, level := range order {
		index[level] = i
	}
	pages := make(map[string]string, len(completionPages))
	for level, page := range completionPages {
		pages[level] = page
	}
	return &LevelGraph{order: append([]string(nil), order...), index: index, completionPages: pages}
}

// Contains reports whether level is a node of the graph.
func (g *LevelGraph) Contains(level string) bool {
	_, ok := g.index[level]
	return ok
}

// First returns the entry level.
func (g *LevelGraph) First() string {
	return g.order[0]
}

// Size returns the number of levels.
func (g *LevelGraph) Size() int { return len(g.order) }

// Levels returns the nodes in unlock order.
func (g *LevelGraph) Levels() []string {
	return append([]string(nil), g.order...)
}

// Successor returns the level following the given one, or TerminalMarker for
// the last node. Unknown levels return the empty string.
func (g *LevelGraph) Successor(level string) string {
	i, ok := g.index[level]
	if !ok {
		return ""
	}
	if i == len(g.order)-1 {
		return TerminalMarker
	}
	return g.order[i+1]
}

// CompletionPage returns the chapter-completion redirect for level, if any.
func (g *LevelGraph) CompletionPage(level string) string {
	return g.completionPages[level]
}

// IsAccessible reports whether the participant may open level: their current
// level is always accessible and completed levels stay revisitable. There is
// no forward skipping.
func (g *LevelGraph) IsAccessible(p domain.Participant, level string) (bool, error) {
	if !g.Contains(level) {
		return false, domain.ErrInvalidLevel
	}
	if level == p.CurrentLevel {
		return true, nil
	}
	for _, done := range p.CompletedLevels {
		if done == level {
			return true, nil
		}
	}
	return false, nil
}

// Advance marks level completed on the participant and moves the current
// pointer to the first incomplete node in graph order. It is idempotent:
// re-advancing a completed level changes nothing, and the pointer stays put
// once every node is complete.
func (g *LevelGraph) Advance(p *domain.Participant, level string) error {
	if !g.Contains(level) {
		return domain.ErrInvalidLevel
	}
	for _, done := range p.CompletedLevels {
		if done == level {
			return nil
		}
	}
	p.CompletedLevels = append(p.CompletedLevels, level)
	if next, ok := g.firstIncomplete(p.CompletedLevels); ok {
		p.CurrentLevel = next
	}
	return nil
}

// firstIncomplete returns the earliest node not yet completed.
func (g *LevelGraph) firstIncomplete(completed []string) (string, bool) {
	done := make(map[string]struct{}, len(completed))
	for _, level := range completed {
		done[level] = struct{}{}
	}
	for _, level := range g.order {
		if _, ok := done[level]; !ok {
			return level, true
		}
	}
	return "", false
}
