// Package depgraph builds and orders the dependency graph between
// vocabulary items: a word depends on its characters, a character on its
// components.
package depgraph

import (
	"container/heap"

	"github.com/japaniel/mmagic/pkg/errs"
)

// Graph maps words to their dependencies. It remembers the order words were
// added in so that sorting is deterministic.
type Graph struct {
	keys []string
	deps map[string][]string
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{deps: make(map[string][]string)}
}

// Add sets the dependencies of word. Duplicates and self references are
// dropped. Adding a word again replaces its dependencies but keeps its
// original position.
func (g *Graph) Add(word string, deps []string) {
	seen := map[string]bool{word: true}
	clean := make([]string, 0, len(deps))
	for _, d := range deps {
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		clean = append(clean, d)
	}
	if _, ok := g.deps[word]; !ok {
		g.keys = append(g.keys, word)
	}
	g.deps[word] = clean
}

// Has reports whether word is a key of the graph.
func (g *Graph) Has(word string) bool {
	_, ok := g.deps[word]
	return ok
}

// Deps returns the dependencies of word.
func (g *Graph) Deps(word string) []string {
	return g.deps[word]
}

// Words returns the keys in insertion order.
func (g *Graph) Words() []string {
	return append([]string(nil), g.keys...)
}

// Len is the number of keys.
func (g *Graph) Len() int { return len(g.keys) }

// Sort orders the graph so that every dependency comes before the words
// depending on it. Dependencies that are not keys are leaves. Independent
// words keep their insertion order.
//
// If the graph has a cycle, Sort returns the words it could order together
// with a CycleDetected error naming a word on the cycle.
func Sort(g *Graph) ([]string, error) {
	// Nodes in discovery order: keys, then leaf-only dependencies.
	var nodes []string
	known := make(map[string]bool)
	for _, w := range g.keys {
		if !known[w] {
			known[w] = true
			nodes = append(nodes, w)
		}
	}
	for _, w := range g.keys {
		for _, d := range g.deps[w] {
			if !known[d] {
				known[d] = true
				nodes = append(nodes, d)
			}
		}
	}

	index := make(map[string]int, len(nodes))
	for i, w := range nodes {
		index[w] = i
	}
	pending := make([]int, len(nodes))
	dependents := make([][]int, len(nodes))
	ready := &indexHeap{}
	for i, w := range nodes {
		pending[i] = len(g.deps[w])
		for _, d := range g.deps[w] {
			dependents[index[d]] = append(dependents[index[d]], i)
		}
		if pending[i] == 0 {
			heap.Push(ready, i)
		}
	}

	// Always take the earliest ready node.
	order := make([]string, 0, len(nodes))
	done := make(map[string]bool, len(nodes))
	for ready.Len() > 0 {
		i := heap.Pop(ready).(int)
		done[nodes[i]] = true
		order = append(order, nodes[i])
		for _, j := range dependents[i] {
			pending[j]--
			if pending[j] == 0 {
				heap.Push(ready, j)
			}
		}
	}
	if len(order) < len(nodes) {
		return order, errs.CycleDetected(findCycle(g, done))
	}
	return order, nil
}

type indexHeap []int

func (h indexHeap) Len() int            { return len(h) }
func (h indexHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *indexHeap) Push(x interface{}) { *h = append(*h, x.(int)) }
func (h *indexHeap) Pop() interface{} {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

// findCycle walks unresolved dependencies from the first unordered word
// until a word repeats. That word lies on a cycle.
func findCycle(g *Graph, done map[string]bool) string {
	start := ""
	for _, w := range g.keys {
		if !done[w] {
			start = w
			break
		}
	}
	visited := make(map[string]bool)
	w := start
	for !visited[w] {
		visited[w] = true
		next := ""
		for _, d := range g.deps[w] {
			if !done[d] {
				next = d
				break
			}
		}
		if next == "" {
			return w
		}
		w = next
	}
	return w
}

// Induced returns the subgraph on words: each word keeps only the
// dependencies that are themselves among words.
func Induced(words []string, depsOf func(word string) []string) *Graph {
	selected := make(map[string]bool, len(words))
	for _, w := range words {
		selected[w] = true
	}
	g := New()
	for _, w := range words {
		var deps []string
		for _, d := range depsOf(w) {
			if selected[d] {
				deps = append(deps, d)
			}
		}
		g.Add(w, deps)
	}
	return g
}
