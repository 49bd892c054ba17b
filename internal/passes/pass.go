// Package passes runs analysis passes over a solved stream graph before C5
// lowers it to HDL. It follows the same Pass/Manager shape the teacher wires
// up in its cmd/mygo/main.go (NewManager, Add, Run over a shared design
// value), retargeted from the teacher's ir.Design onto *streamgraph.StreamGraph.
package passes

import (
	"fmt"

	"streamhls/internal/streamgraph"
)

// Pass is one independent check or annotation step over a stream graph.
type Pass interface {
	Name() string
	Run(sg *streamgraph.StreamGraph) error
}

// Manager runs a fixed sequence of passes over one stream graph, stopping at
// the first that returns an error.
type Manager struct {
	passes []Pass
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{}
}

// Add appends p to the sequence of passes Run executes.
func (m *Manager) Add(p Pass) {
	m.passes = append(m.passes, p)
}

// Run executes every registered pass in order over sg.
func (m *Manager) Run(sg *streamgraph.StreamGraph) error {
	if sg == nil {
		return fmt.Errorf("passes: nil stream graph")
	}
	for _, p := range m.passes {
		if err := p.Run(sg); err != nil {
			return fmt.Errorf("%s: %w", p.Name(), err)
		}
	}
	return nil
}
