package graph

import (
	"container/heap"
	"sort"

	"violin/internal/models"
)

// Edge points from a regulator variable to the element it regulates.
// Weight is 0 for positive and 1 for negative regulation.
type Edge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Weight int    `json:"weight"`
}

// RegulatoryGraph is the signed directed graph of a model. Only variables
// touched by at least one edge are nodes. It is read-only after Build and
// safe for concurrent queries.
type RegulatoryGraph struct {
	out     map[string][]Edge
	weights map[[2]string]int
	nodes   []string
}

// Build emits one edge per regulator slot of every entity. A regulator listed
// with both signs for the same element keeps the negative weight.
func Build(m *models.Model) *RegulatoryGraph {
	g := &RegulatoryGraph{
		out:     map[string][]Edge{},
		weights: map[[2]string]int{},
	}
	nodes := map[string]struct{}{}
	for i := 0; i < m.Len(); i++ {
		e := m.At(i)
		for _, r := range e.Regulators {
			key := [2]string{r.Variable, e.Variable}
			w := r.Sign.Bit()
			if prev, ok := g.weights[key]; ok && prev >= w {
				continue
			}
			g.weights[key] = w
			nodes[r.Variable] = struct{}{}
			nodes[e.Variable] = struct{}{}
		}
	}
	for key, w := range g.weights {
		g.out[key[0]] = append(g.out[key[0]], Edge{From: key[0], To: key[1], Weight: w})
	}
	for from := range g.out {
		edges := g.out[from]
		sort.Slice(edges, func(i, j int) bool { return edges[i].To < edges[j].To })
	}
	g.nodes = make([]string, 0, len(nodes))
	for n := range nodes {
		g.nodes = append(g.nodes, n)
	}
	sort.Strings(g.nodes)
	return g
}

func (g *RegulatoryGraph) HasNode(v string) bool {
	if _, ok := g.out[v]; ok {
		return true
	}
	i := sort.SearchStrings(g.nodes, v)
	return i < len(g.nodes) && g.nodes[i] == v
}

func (g *RegulatoryGraph) Nodes() []string {
	return append([]string(nil), g.nodes...)
}

func (g *RegulatoryGraph) EdgeCount() int {
	return len(g.weights)
}

// Weight returns the weight of the edge from -> to.
func (g *RegulatoryGraph) Weight(from, to string) (int, bool) {
	w, ok := g.weights[[2]string{from, to}]
	return w, ok
}

func (g *RegulatoryGraph) HasPath(from, to string) bool {
	_, ok := g.ShortestPath(from, to)
	return ok
}

// ShortestPath returns the hop-minimal node sequence from -> to, endpoints
// included. A node reaches itself with the one-element path [from].
func (g *RegulatoryGraph) ShortestPath(from, to string) ([]string, bool) {
	if !g.HasNode(from) || !g.HasNode(to) {
		return nil, false
	}
	if from == to {
		return []string{from}, true
	}
	parent := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, e := range g.out[current] {
			if _, seen := parent[e.To]; seen {
				continue
			}
			parent[e.To] = current
			if e.To == to {
				return unwind(parent, from, to), true
			}
			queue = append(queue, e.To)
		}
	}
	return nil, false
}

// LightestPath returns the path with the smallest summed edge weight, i.e.
// the fewest negative steps, breaking ties by hop count.
func (g *RegulatoryGraph) LightestPath(from, to string) ([]string, bool) {
	if !g.HasNode(from) || !g.HasNode(to) {
		return nil, false
	}
	if from == to {
		return []string{from}, true
	}
	best := map[string]cost{from: {}}
	parent := map[string]string{from: ""}
	done := map[string]bool{}
	pq := &costQueue{{node: from}}
	for pq.Len() > 0 {
		item := heap.Pop(pq).(costItem)
		if done[item.node] {
			continue
		}
		done[item.node] = true
		if item.node == to {
			return unwind(parent, from, to), true
		}
		for _, e := range g.out[item.node] {
			next := cost{weight: item.weight + e.Weight, hops: item.hops + 1}
			if prev, ok := best[e.To]; ok && !next.less(prev) {
				continue
			}
			best[e.To] = next
			parent[e.To] = item.node
			heap.Push(pq, costItem{node: e.To, cost: next})
		}
	}
	return nil, false
}

// PathSign sums edge weights along path modulo 2. ok is false when two
// consecutive nodes are not joined by an edge.
func (g *RegulatoryGraph) PathSign(path []string) (int, bool) {
	total := 0
	for i := 0; i+1 < len(path); i++ {
		w, ok := g.Weight(path[i], path[i+1])
		if !ok {
			return 0, false
		}
		total += w
	}
	return total % 2, true
}

func unwind(parent map[string]string, from, to string) []string {
	path := []string{to}
	for n := to; n != from; {
		n = parent[n]
		path = append(path, n)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

type cost struct {
	weight int
	hops   int
}

func (c cost) less(o cost) bool {
	if c.weight != o.weight {
		return c.weight < o.weight
	}
	return c.hops < o.hops
}

type costItem struct {
	node string
	cost
}

type costQueue []costItem

func (q costQueue) Len() int { return len(q) }
func (q costQueue) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost.less(q[j].cost)
	}
	return q[i].node < q[j].node
}
func (q costQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *costQueue) Push(x any)   { *q = append(*q, x.(costItem)) }
func (q *costQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
