// Package graph provides a dependency graph for workflow task gating.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aimami-art/agentmesh/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found among the
// workflow's task specs.
var ErrCycleDetected = errors.New("circular dependency detected")

// DependencyGraph is a directed acyclic graph over a workflow's task
// specs. Nodes are spec names, edges are "blocked by" relationships.
// The coordinator consults it to decide which specs may be submitted.
type DependencyGraph struct {
	mu sync.RWMutex
	// nodes maps spec name to the spec itself.
	nodes map[string]models.WorkflowTaskSpec
	// edges maps spec name to the names of specs it depends on.
	edges map[string][]string
	// order preserves the declaration order of specs for deterministic
	// ready lists.
	order []string
	// completed tracks specs whose tasks finished successfully.
	completed map[string]bool
	// failed tracks specs whose tasks failed or were abandoned because
	// a dependency failed.
	failed map[string]bool
}

// New creates an empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		nodes:     make(map[string]models.WorkflowTaskSpec),
		edges:     make(map[string][]string),
		completed: make(map[string]bool),
		failed:    make(map[string]bool),
	}
}

// Build constructs the graph from a workflow's task specs. Returns an
// error on duplicate names, dependencies on unknown specs, or cycles.
func (g *DependencyGraph) Build(specs []models.WorkflowTaskSpec) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, spec := range specs {
		if _, dup := g.nodes[spec.Name]; dup {
			return fmt.Errorf("duplicate task spec %q", spec.Name)
		}
		g.nodes[spec.Name] = spec
		g.edges[spec.Name] = nil
		g.order = append(g.order, spec.Name)
	}

	for _, spec := range specs {
		for _, dep := range spec.Dependencies {
			if _, exists := g.nodes[dep]; !exists {
				return fmt.Errorf("task spec %q depends on unknown spec %q", spec.Name, dep)
			}
			g.edges[spec.Name] = append(g.edges[spec.Name], dep)
		}
	}

	if g.hasCycleLocked() {
		return ErrCycleDetected
	}
	return nil
}

// HasCycle reports whether the graph contains a circular dependency.
func (g *DependencyGraph) HasCycle() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.hasCycleLocked()
}

// hasCycleLocked runs a depth-first search with three colors, looking
// for a back edge. Caller must hold the lock.
func (g *DependencyGraph) hasCycleLocked() bool {
	const (
		white = iota
		gray
		black
	)
	colors := make(map[string]int, len(g.nodes))

	var visit func(name string) bool
	visit = func(name string) bool {
		colors[name] = gray
		for _, dep := range g.edges[name] {
			switch colors[dep] {
			case gray:
				return true
			case white:
				if visit(dep) {
					return true
				}
			}
		}
		colors[name] = black
		return false
	}

	for _, name := range g.order {
		if colors[name] == white && visit(name) {
			return true
		}
	}
	return false
}

// TopologicalSort returns spec names with every dependency ordered
// before its dependents. Errors if the graph has a cycle.
func (g *DependencyGraph) TopologicalSort() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.hasCycleLocked() {
		return nil, ErrCycleDetected
	}

	visited := make(map[string]bool, len(g.nodes))
	var result []string

	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		for _, dep := range g.edges[name] {
			visit(dep)
		}
		result = append(result, name)
	}

	for _, name := range g.order {
		visit(name)
	}
	return result, nil
}

// Ready returns the specs whose dependencies have all completed and
// that are neither completed nor failed themselves, in declaration
// order. These are safe to submit in parallel.
func (g *DependencyGraph) Ready() []models.WorkflowTaskSpec {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []models.WorkflowTaskSpec
	for _, name := range g.order {
		if g.completed[name] || g.failed[name] {
			continue
		}
		blocked := false
		for _, dep := range g.edges[name] {
			if !g.completed[dep] {
				blocked = true
				break
			}
		}
		if !blocked {
			ready = append(ready, g.nodes[name])
		}
	}
	return ready
}

// MarkComplete records a spec's task as successfully finished,
// unblocking its dependents on the next Ready call.
func (g *DependencyGraph) MarkComplete(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.completed[name] = true
}

// MarkFailed records a spec's task as failed and cascades the failure
// to every spec that transitively depends on it. Those specs will never
// become ready. Returns the names abandoned by the cascade, sorted.
func (g *DependencyGraph) MarkFailed(name string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.failed[name] = true

	var abandoned []string
	frontier := []string{name}
	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]
		for _, dependent := range g.dependentsLocked(current) {
			if g.failed[dependent] || g.completed[dependent] {
				continue
			}
			g.failed[dependent] = true
			abandoned = append(abandoned, dependent)
			frontier = append(frontier, dependent)
		}
	}
	sort.Strings(abandoned)
	return abandoned
}

// Settled reports whether every spec has reached a final disposition,
// completed or failed.
func (g *DependencyGraph) Settled() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, name := range g.order {
		if !g.completed[name] && !g.failed[name] {
			return false
		}
	}
	return true
}

// Spec returns the spec for a given name.
func (g *DependencyGraph) Spec(name string) (models.WorkflowTaskSpec, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	spec, ok := g.nodes[name]
	return spec, ok
}

// Size returns the number of specs in the graph.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Dependencies returns the names a given spec is blocked by.
func (g *DependencyGraph) Dependencies(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.edges[name]...)
}

// Dependents returns the names of specs that depend on the given one.
func (g *DependencyGraph) Dependents(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dependentsLocked(name)
}

func (g *DependencyGraph) dependentsLocked(name string) []string {
	var dependents []string
	for _, candidate := range g.order {
		for _, dep := range g.edges[candidate] {
			if dep == name {
				dependents = append(dependents, candidate)
				break
			}
		}
	}
	return dependents
}

// CompletedNames returns the specs marked complete, sorted.
func (g *DependencyGraph) CompletedNames() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var names []string
	for name, done := range g.completed {
		if done {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
