// Package neighbor implements the Neighbor Generator (C5): from a
// current build, the tree graph, and the budget ledger, it produces
// the ranked, capped set of legal single-step mutations the
// hill-climbing engine evaluates each iteration.
package neighbor

import (
	"sort"

	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/build"
	"github.com/User-dev-volt/poe2-optimizer-v6-sub004/internal/treegraph"
)

// K is the per-iteration candidate cap.
const K = 100

// Candidate pairs a mutation with the node-type weight used to rank it.
type Candidate struct {
	Mutation build.Mutation
	Weight   int
}

// Generate produces the legal candidate set for cur: add-candidates
// when free budget remains, swap-candidates only once free budget is
// exhausted (or no add candidate exists), every candidate validated
// for connectivity, ranked by node-type weight, and capped at K.
func Generate(cur build.Build, graph *treegraph.Graph, ledger *build.Ledger) []Candidate {
	var candidates []Candidate

	if ledger.FreeRemaining() > 0 {
		candidates = append(candidates, addCandidates(cur, graph)...)
	}

	// Free-first rule: swaps are emitted only once free budget is
	// exhausted or no add exists.
	respecRemaining := ledger.RespecRemaining()
	respecAvailable := respecRemaining == build.InfiniteRespec || respecRemaining > 0
	if respecAvailable && (ledger.FreeRemaining() == 0 || len(candidates) == 0) {
		candidates = append(candidates, swapCandidates(cur, graph)...)
	}

	validated := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		next := cur.Apply(c.Mutation)
		if next.IsConnected(graph) {
			validated = append(validated, c)
		}
	}

	sort.SliceStable(validated, func(i, j int) bool {
		if validated[i].Weight != validated[j].Weight {
			return validated[i].Weight > validated[j].Weight
		}
		return validated[i].Mutation.LowestAddedNode() < validated[j].Mutation.LowestAddedNode()
	})

	if len(validated) > K {
		validated = validated[:K]
	}
	return validated
}

func addCandidates(cur build.Build, graph *treegraph.Graph) []Candidate {
	seen := make(map[int]bool)
	var out []Candidate
	for allocated := range cur.Allocated {
		node, ok := graph.Node(allocated)
		if !ok {
			continue
		}
		for _, adj := range node.Adjacent {
			if cur.Allocated[adj] || seen[adj] {
				continue
			}
			adjNode, ok := graph.Node(adj)
			if !ok {
				continue
			}
			seen[adj] = true
			out = append(out, Candidate{
				Mutation: build.NewAddMutation(adj),
				Weight:   adjNode.Type.Weight(),
			})
		}
	}
	return out
}

// swapCandidates pairs each removable allocated leaf node with every
// unallocated node adjacent to the build-minus-that-node. "Removable"
// here is a quick pre-filter (not a start node); the expensive full
// connectivity check happens once per candidate in Generate.
func swapCandidates(cur build.Build, graph *treegraph.Graph) []Candidate {
	startID, _ := graph.ClassStart(string(cur.Class))

	var out []Candidate
	for removeID := range cur.Allocated {
		if removeID == startID {
			continue
		}
		reduced := cur.Apply(build.Mutation{NodesToRemove: []int{removeID}})

		seen := make(map[int]bool)
		for allocated := range reduced.Allocated {
			node, ok := graph.Node(allocated)
			if !ok {
				continue
			}
			for _, adj := range node.Adjacent {
				if reduced.Allocated[adj] || seen[adj] || adj == removeID {
					continue
				}
				adjNode, ok := graph.Node(adj)
				if !ok {
					continue
				}
				seen[adj] = true
				out = append(out, Candidate{
					Mutation: build.NewSwapMutation(removeID, adj),
					Weight:   adjNode.Type.Weight(),
				})
			}
		}
	}
	return out
}
