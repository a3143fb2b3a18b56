// Package treegraph loads and serves the passive-skill-tree graph (C2):
// a process-global, read-only node/adjacency structure parsed once at
// startup from the game's passive-tree JSON blob (an external input —
// this package only parses and indexes it).
package treegraph

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// NodeType is the passive-tree node taxonomy.
type NodeType string

const (
	NodeKeystone NodeType = "keystone"
	NodeNotable  NodeType = "notable"
	NodeSmall    NodeType = "small"
	NodeTravel   NodeType = "travel"
)

// Weight returns the neighbor-generator priority weight for the node
// type (keystone=100, notable=50, small=20, travel=5).
func (t NodeType) Weight() int {
	switch t {
	case NodeKeystone:
		return 100
	case NodeNotable:
		return 50
	case NodeSmall:
		return 20
	case NodeTravel:
		return 5
	default:
		return 0
	}
}

// Node is one passive-tree node: its stat text, type, and undirected
// adjacency to other node ids.
type Node struct {
	ID         int
	StatText   string
	Type       NodeType
	Adjacent   []int
	ClassStart bool
}

// Graph is the process-global, read-only passive tree. Safe for
// concurrent read access once Load returns.
type Graph struct {
	nodes       map[int]*Node
	classStarts map[string]int // class name -> start node id
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// Node returns the node with the given id, or (nil, false).
func (g *Graph) Node(id int) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// MustNode returns the node with the given id, panicking if absent —
// for call sites that have already validated membership.
func (g *Graph) MustNode(id int) *Node {
	n, ok := g.nodes[id]
	if !ok {
		panic(fmt.Sprintf("treegraph: node %d not in graph", id))
	}
	return n
}

// ClassStart returns the start node id for the given character class.
func (g *Graph) ClassStart(class string) (int, bool) {
	id, ok := g.classStarts[class]
	return id, ok
}

// Adjacent reports whether nodes a and b share an edge.
func (g *Graph) Adjacent(a, b int) bool {
	n, ok := g.nodes[a]
	if !ok {
		return false
	}
	for _, nb := range n.Adjacent {
		if nb == b {
			return true
		}
	}
	return false
}

// Load parses a passive-tree JSON blob of the shape:
//
//	{
//	  "nodes": [{"id":1,"stat":"...","type":"keystone","adjacent":[2,3]}],
//	  "class_starts": {"Witch": 1, "Ranger": 42, ...}
//	}
//
// into a Graph. It is called once at process startup; the result is
// shared read-only for the process lifetime.
func Load(jsonBlob []byte) (*Graph, error) {
	if !gjson.ValidBytes(jsonBlob) {
		return nil, fmt.Errorf("treegraph: invalid JSON")
	}
	root := gjson.ParseBytes(jsonBlob)

	nodesResult := root.Get("nodes")
	if !nodesResult.Exists() || !nodesResult.IsArray() {
		return nil, fmt.Errorf("treegraph: missing \"nodes\" array")
	}

	g := &Graph{
		nodes:       make(map[int]*Node),
		classStarts: make(map[string]int),
	}

	var parseErr error
	nodesResult.ForEach(func(_, nodeVal gjson.Result) bool {
		if !nodeVal.Get("id").Exists() {
			parseErr = fmt.Errorf("treegraph: node missing \"id\"")
			return false
		}
		id := int(nodeVal.Get("id").Int())
		typ := NodeType(nodeVal.Get("type").String())
		switch typ {
		case NodeKeystone, NodeNotable, NodeSmall, NodeTravel:
		default:
			parseErr = fmt.Errorf("treegraph: node %d has unknown type %q", id, typ)
			return false
		}

		var adjacent []int
		nodeVal.Get("adjacent").ForEach(func(_, adjVal gjson.Result) bool {
			adjacent = append(adjacent, int(adjVal.Int()))
			return true
		})

		g.nodes[id] = &Node{
			ID:       id,
			StatText: nodeVal.Get("stat").String(),
			Type:     typ,
			Adjacent: adjacent,
		}
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	root.Get("class_starts").ForEach(func(classKey, idVal gjson.Result) bool {
		class := classKey.String()
		id := int(idVal.Int())
		g.classStarts[class] = id
		if n, ok := g.nodes[id]; ok {
			n.ClassStart = true
		} else {
			parseErr = fmt.Errorf("treegraph: class start %q references unknown node %d", class, id)
			return false
		}
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	// Adjacency must be symmetric for BFS-based connectivity checks to
	// behave as an undirected graph even if the input blob only lists
	// one direction.
	for id, n := range g.nodes {
		for _, adj := range n.Adjacent {
			other, ok := g.nodes[adj]
			if !ok {
				return nil, fmt.Errorf("treegraph: node %d adjacent to unknown node %d", id, adj)
			}
			if !g.Adjacent(adj, id) {
				other.Adjacent = append(other.Adjacent, id)
			}
		}
	}

	return g, nil
}

// BFSReachable returns the set of node ids reachable from start using
// only edges whose both endpoints are in allowed.
func (g *Graph) BFSReachable(start int, allowed map[int]bool) map[int]bool {
	visited := map[int]bool{start: true}
	queue := []int{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		node, ok := g.nodes[cur]
		if !ok {
			continue
		}
		for _, adj := range node.Adjacent {
			if !allowed[adj] || visited[adj] {
				continue
			}
			visited[adj] = true
			queue = append(queue, adj)
		}
	}
	return visited
}
