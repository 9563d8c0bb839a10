package graph

import (
	"time"
)

// Document is the wire form of a Graph, matching the on-disk graph
// document: a map of topic to flattened node metadata, plus an edge list.
//
//	{
//	  "nodes": {"python": {"created": "...", "references": 2}},
//	  "edges": [{"source": "python", "target": "testing",
//	             "relation": "co-occurs", "weight": 1.0, "created": "..."}]
//	}
type Document struct {
	Nodes map[string]map[string]any `json:"nodes"`
	Edges []EdgeRecord              `json:"edges"`
}

// EdgeRecord is the wire form of one edge.
type EdgeRecord struct {
	Source   string  `json:"source"`
	Target   string  `json:"target"`
	Relation string  `json:"relation"`
	Weight   float64 `json:"weight"`
	Created  string  `json:"created"`
}

// Node metadata keys reserved by the graph itself. Everything else in a
// node's document object is an arbitrary caller attribute.
const (
	nodeKeyCreated    = "created"
	nodeKeyReferences = "references"
)

// ToDocument serializes the graph.
func (g *Graph) ToDocument() Document {
	doc := Document{
		Nodes: make(map[string]map[string]any, len(g.nodes)),
		Edges: make([]EdgeRecord, 0, len(g.edges)),
	}
	for topic, n := range g.nodes {
		meta := make(map[string]any, len(n.Properties)+2)
		for k, v := range n.Properties {
			meta[k] = v
		}
		meta[nodeKeyCreated] = n.Created.Format(time.RFC3339Nano)
		meta[nodeKeyReferences] = n.References
		doc.Nodes[topic] = meta
	}
	for _, e := range g.edges {
		doc.Edges = append(doc.Edges, EdgeRecord{
			Source:   e.Source,
			Target:   e.Target,
			Relation: e.Relation,
			Weight:   e.Weight,
			Created:  e.Created.Format(time.RFC3339Nano),
		})
	}
	return doc
}

// FromDocument reconstructs a graph from its wire form. Unparseable
// timestamps and missing counts degrade to zero values rather than
// failing — a half-readable graph document still yields a usable graph.
func FromDocument(doc Document) *Graph {
	g := New()
	for topic, meta := range doc.Nodes {
		n := &Node{Properties: make(map[string]any)}
		for k, v := range meta {
			switch k {
			case nodeKeyCreated:
				if s, ok := v.(string); ok {
					if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
						n.Created = t
					}
				}
			case nodeKeyReferences:
				n.References = toInt(v)
			default:
				n.Properties[k] = v
			}
		}
		g.nodes[topic] = n
	}
	for _, rec := range doc.Edges {
		e := &Edge{
			Source:   rec.Source,
			Target:   rec.Target,
			Relation: rec.Relation,
			Weight:   rec.Weight,
		}
		if t, err := time.Parse(time.RFC3339Nano, rec.Created); err == nil {
			e.Created = t
		}
		g.edges = append(g.edges, e)
	}
	return g
}

// toInt handles the JSON round-trip: numbers decode as float64.
func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
