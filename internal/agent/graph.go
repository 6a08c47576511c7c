package agent

import (
	"context"
	"fmt"
	"log/slog"
)

// defaultMaxSteps bounds a single graph run. A turn normally visits three to
// five nodes; the cap keeps a misrouting model from looping.
const defaultMaxSteps = 8

// NodeFunc mutates the state for one agent step.
type NodeFunc func(ctx context.Context, s *State) error

// EdgeFunc inspects the state and names the next node, or End.
type EdgeFunc func(s *State) string

// Graph is a small state graph: named nodes connected by conditional edges.
// Execution starts at the entry node and follows edge decisions until End.
type Graph struct {
	nodes    map[string]NodeFunc
	edges    map[string]EdgeFunc
	entry    string
	maxSteps int
	log      *slog.Logger
}

// NewGraph creates an empty graph with the given entry node.
func NewGraph(entry string, log *slog.Logger) *Graph {
	if log == nil {
		log = slog.Default()
	}
	return &Graph{
		nodes:    make(map[string]NodeFunc),
		edges:    make(map[string]EdgeFunc),
		entry:    entry,
		maxSteps: defaultMaxSteps,
		log:      log.With("component", "agent_graph"),
	}
}

// AddNode registers a node function under a name.
func (g *Graph) AddNode(name string, fn NodeFunc) {
	g.nodes[name] = fn
}

// AddConditionalEdge registers the routing decision taken after a node runs.
func (g *Graph) AddConditionalEdge(from string, route EdgeFunc) {
	g.edges[from] = route
}

// AddEdge registers an unconditional transition.
func (g *Graph) AddEdge(from, to string) {
	g.edges[from] = func(*State) string { return to }
}

// Run executes the graph on the state until an edge returns End, a node
// fails, or the step cap is reached.
func (g *Graph) Run(ctx context.Context, s *State) error {
	current := g.entry

	for step := 0; step < g.maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		fn, ok := g.nodes[current]
		if !ok {
			return fmt.Errorf("graph has no node %q", current)
		}

		g.log.DebugContext(ctx, "Executing node", "node", current, "step", step, "chat_id", s.ChatID)
		if err := fn(ctx, s); err != nil {
			return fmt.Errorf("node %q failed: %w", current, err)
		}

		route, ok := g.edges[current]
		if !ok {
			return nil
		}

		next := route(s)
		if next == End {
			return nil
		}
		current = next
	}

	g.log.WarnContext(ctx, "Graph run hit step cap", "max_steps", g.maxSteps, "chat_id", s.ChatID)
	return nil
}
