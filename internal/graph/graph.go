package graph

import (
	"context"
	"errors"
	"fmt"
)

// Node is one unit of pipeline work. Run executes only after every
// dependency has succeeded.
type Node struct {
	Name string
	Deps []string
	Run  func(ctx context.Context) error
}

// Graph is a validated set of named nodes wired by dependency edges.
type Graph struct {
	nodes []Node
	index map[string]int
}

// New validates the node set: names must be unique and non-empty, every
// dependency must resolve, and the edges must be acyclic.
func New(nodes []Node) (*Graph, error) {
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		if n.Name == "" {
			return nil, errors.New("node with empty name")
		}
		if _, dup := index[n.Name]; dup {
			return nil, fmt.Errorf("duplicate node %q", n.Name)
		}
		if n.Run == nil {
			return nil, fmt.Errorf("node %q has no run function", n.Name)
		}
		index[n.Name] = i
	}

	for _, n := range nodes {
		for _, dep := range n.Deps {
			if _, ok := index[dep]; !ok {
				return nil, fmt.Errorf("node %q depends on unknown node %q", n.Name, dep)
			}
		}
	}

	g := &Graph{nodes: nodes, index: index}
	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}
	return g, nil
}

// Nodes returns the node names in declaration order.
func (g *Graph) Nodes() []string {
	names := make([]string, len(g.nodes))
	for i, n := range g.nodes {
		names[i] = n.Name
	}
	return names
}

func (g *Graph) checkAcyclic() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(g.nodes))

	var visit func(i int) error
	visit = func(i int) error {
		state[i] = visiting
		for _, dep := range g.nodes[i].Deps {
			j := g.index[dep]
			switch state[j] {
			case visiting:
				return fmt.Errorf("dependency cycle through %q and %q", g.nodes[i].Name, dep)
			case unvisited:
				if err := visit(j); err != nil {
					return err
				}
			}
		}
		state[i] = done
		return nil
	}

	for i := range g.nodes {
		if state[i] == unvisited {
			if err := visit(i); err != nil {
				return err
			}
		}
	}
	return nil
}

// ready returns indexes of nodes whose dependencies have all succeeded and
// which have not been executed yet.
func (g *Graph) ready(state map[string]Status) []int {
	var out []int
	for i, n := range g.nodes {
		if _, executed := state[n.Name]; executed {
			continue
		}
		eligible := true
		for _, dep := range n.Deps {
			if state[dep] != StatusSucceeded {
				eligible = false
				break
			}
		}
		if eligible {
			out = append(out, i)
		}
	}
	return out
}
