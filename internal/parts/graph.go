package parts

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/opencontainers/go-digest"
)

// One part in the execution graph.
type node struct {
	part       *Part
	deps       []*node
	dependents []*node

	remaining   atomic.Int32  // Dependencies not yet staged.
	status      atomic.Int32  // Current [Status].
	skipOnce    sync.Once     // Guards the skip path when an upstream fails.
	digest      digest.Digest // Input fingerprint, computed once deps have staged.
	stagedFiles []string      // Files this part placed in the stage area.
	skipped     bool          // Whether pull/build/stage were skipped as up to date.
}

func (n *node) setStatus(s Status) {
	n.status.Store(int32(s))
}

func (n *node) currentStatus() Status {
	return Status(n.status.Load())
}

// Builds the execution graph over the compiled parts and rejects cycles.
func buildGraph(list []*Part) (map[string]*node, error) {
	nodes := make(map[string]*node, len(list))
	for _, p := range list {
		nodes[p.Name] = &node{part: p}
	}

	for _, p := range list {
		n := nodes[p.Name]
		for _, depName := range p.After {
			dep, ok := nodes[depName]
			if !ok {
				return nil, fmt.Errorf("part %q: after references unknown part %q", p.Name, depName)
			}
			n.deps = append(n.deps, dep)
			dep.dependents = append(dep.dependents, n)
		}
		n.remaining.Store(int32(len(n.deps)))
	}

	if err := detectCycles(nodes); err != nil {
		return nil, err
	}

	return nodes, nil
}

// Depth-first cycle detection over the after-graph.
//
// Nodes move from unvisited through the in-progress set to done; hitting
// an in-progress node again means the graph loops.
func detectCycles(nodes map[string]*node) error {
	done := make(map[string]bool, len(nodes))
	inProgress := make(map[string]bool)

	var visit func(n *node) error
	visit = func(n *node) error {
		if done[n.part.Name] {
			return nil
		}
		if inProgress[n.part.Name] {
			return fmt.Errorf("%w: involving part %q", ErrCycle, n.part.Name)
		}

		inProgress[n.part.Name] = true
		for _, dep := range n.deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		delete(inProgress, n.part.Name)
		done[n.part.Name] = true

		return nil
	}

	for _, n := range nodes {
		if err := visit(n); err != nil {
			return err
		}
	}
	return nil
}
