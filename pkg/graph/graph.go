// Package graph implements the topic association graph for KnowledgeSync.
//
// Nodes are normalized (lower-cased) topic strings; edges are weighted,
// labeled connections between two topics. The graph is built lazily as
// entries are added — every pair of topics that appears together on one
// entry gets a "co-occurs" edge — and it only ever grows: there is no
// node or edge deletion. Pruning, if it is ever needed at this scale,
// belongs in a separate explicit pass, not in the mutators.
//
// Edge identity is the unordered endpoint pair: AddEdge("a", "b", ...)
// and AddEdge("b", "a", ...) address the same edge. Adding an edge that
// already exists updates its relation to the newest value and its weight
// to the maximum of old and new; it never creates a second edge.
//
// Example Usage:
//
//	g := graph.New()
//	g.AddNode("python", nil)
//	g.AddEdge("python", "testing", "co-occurs", 1.0)
//
//	related := g.Related("python", 2)
//	for topic := range related {
//		fmt.Println(topic) // "testing"
//	}
//
// ELI12:
//
// Think of the graph as a pinboard of sticky notes. Every topic is a
// note, and every time two topics show up in the same piece of knowledge
// you run a string between their notes. Ask "what's near python?" and you
// follow the strings outward — one hop, two hops — collecting every note
// you can reach.
//
// Thread Safety:
//
//	Graph is NOT safe for concurrent use. The store engine is
//	single-threaded by design; callers serialize access externally.
package graph

import (
	"time"

	"github.com/teambrain/knowledgesync/pkg/knowledge"
)

// DefaultRelation is the relation label used when AddEdge is called
// without a more specific one.
const DefaultRelation = "related_to"

// Node holds per-topic metadata. References counts how many times the
// topic has been added (including implicit adds from edge insertion); it
// only ever increases.
type Node struct {
	Created    time.Time
	References int
	Properties map[string]any
}

// Edge is a weighted, labeled connection between two topics. Direction
// is storage order only — traversal treats every edge as undirected.
type Edge struct {
	Source   string
	Target   string
	Relation string
	Weight   float64
	Created  time.Time
}

// Graph is an append-only weighted topic graph.
type Graph struct {
	nodes map[string]*Node
	edges []*Edge

	// now is the clock used for node/edge creation stamps. Tests may
	// replace it.
	now func() time.Time
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		now:   time.Now,
	}
}

// AddNode adds a topic node, creating it if absent, and increments its
// reference count. The increment happens on every call, whether or not
// the node already existed — the count measures how often the topic has
// been referenced, not how many nodes exist.
//
// Metadata is only applied when the node is first created; later calls
// never overwrite existing properties.
func (g *Graph) AddNode(topic string, metadata map[string]any) {
	topic = knowledge.NormalizeTopic(topic)
	if topic == "" {
		return
	}
	n, ok := g.nodes[topic]
	if !ok {
		n = &Node{
			Created:    g.now(),
			Properties: make(map[string]any),
		}
		for k, v := range metadata {
			n.Properties[k] = v
		}
		g.nodes[topic] = n
	}
	n.References++
}

// AddEdge connects two topics, creating both endpoint nodes if needed
// (each endpoint is reference-counted by the implicit AddNode).
//
// If an edge already exists for the unordered (source, target) pair, its
// relation is replaced with the newest value and its weight becomes
// max(existing, new). Adding the same edge twice therefore yields exactly
// one edge with the original weight, not a doubled one.
//
// Edge lookup is a linear scan over the edge list. At the target scale
// (thousands of edges) this is fine; an endpoint-pair index would be the
// upgrade path without any observable behavior change.
func (g *Graph) AddEdge(source, target, relation string, weight float64) {
	source = knowledge.NormalizeTopic(source)
	target = knowledge.NormalizeTopic(target)
	if source == "" || target == "" {
		return
	}
	if relation == "" {
		relation = DefaultRelation
	}

	g.AddNode(source, nil)
	g.AddNode(target, nil)

	if e := g.findEdge(source, target); e != nil {
		e.Relation = relation
		if weight > e.Weight {
			e.Weight = weight
		}
		return
	}

	g.edges = append(g.edges, &Edge{
		Source:   source,
		Target:   target,
		Relation: relation,
		Weight:   weight,
		Created:  g.now(),
	})
}

// findEdge returns the edge for the unordered (a, b) pair, or nil.
func (g *Graph) findEdge(a, b string) *Edge {
	for _, e := range g.edges {
		if (e.Source == a && e.Target == b) || (e.Source == b && e.Target == a) {
			return e
		}
	}
	return nil
}

// Related returns every topic reachable from the given topic within
// depth hops, excluding the topic itself. Edges are traversed as
// undirected. Returns an empty set when the topic is unknown.
//
// The walk is breadth-first, ring by ring: each node enters the visited
// set exactly once, so the traversal terminates on cyclic graphs, and it
// stops early as soon as a ring adds nothing new.
func (g *Graph) Related(topic string, depth int) map[string]struct{} {
	topic = knowledge.NormalizeTopic(topic)
	related := make(map[string]struct{})
	if _, ok := g.nodes[topic]; !ok {
		return related
	}

	visited := map[string]struct{}{topic: {}}
	ring := map[string]struct{}{topic: {}}

	for hop := 0; hop < depth; hop++ {
		next := make(map[string]struct{})
		for node := range ring {
			for _, e := range g.edges {
				var neighbor string
				switch node {
				case e.Source:
					neighbor = e.Target
				case e.Target:
					neighbor = e.Source
				default:
					continue
				}
				if _, seen := visited[neighbor]; !seen {
					next[neighbor] = struct{}{}
				}
			}
		}
		if len(next) == 0 {
			break
		}
		for n := range next {
			related[n] = struct{}{}
			visited[n] = struct{}{}
		}
		ring = next
	}
	return related
}

// Merge folds another graph into this one. Incoming nodes absent locally
// are added verbatim — metadata and reference count included, without the
// AddNode increment. Incoming edges are appended verbatim when no local
// edge exists for their unordered endpoint pair; unlike AddEdge there is
// no weight reconciliation, merge is purely additive-if-absent.
func (g *Graph) Merge(other *Graph) {
	for topic, node := range other.nodes {
		if _, ok := g.nodes[topic]; !ok {
			g.nodes[topic] = node.clone()
		}
	}
	for _, e := range other.edges {
		if g.findEdge(e.Source, e.Target) == nil {
			copied := *e
			g.edges = append(g.edges, &copied)
		}
	}
}

// Node returns the metadata for a topic, or nil if the topic is unknown.
// The returned value is a copy.
func (g *Graph) Node(topic string) *Node {
	n, ok := g.nodes[knowledge.NormalizeTopic(topic)]
	if !ok {
		return nil
	}
	return n.clone()
}

// Counts returns the reference count per topic.
func (g *Graph) Counts() map[string]int {
	counts := make(map[string]int, len(g.nodes))
	for topic, n := range g.nodes {
		counts[topic] = n.References
	}
	return counts
}

// Len returns the number of topic nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Edges returns a copy of the edge list.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	for i, e := range g.edges {
		out[i] = *e
	}
	return out
}

func (n *Node) clone() *Node {
	c := &Node{
		Created:    n.Created,
		References: n.References,
		Properties: make(map[string]any, len(n.Properties)),
	}
	for k, v := range n.Properties {
		c.Properties[k] = v
	}
	return c
}
