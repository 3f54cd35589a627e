// Package provision wires the bootstrap steps into a linear pipeline: each
// step runs in order, the first failure stops the run, and the operator gets
// an explicit record of which steps completed.
package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/niewczasm/vps-setup/logger"
)

// Step is one named unit of provisioning work.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

type Pipeline struct {
	Log   logger.Logger
	Steps []Step

	// Completed lists the steps that finished, in order.
	Completed []string
}

// Run executes the steps sequentially, stopping at the first failure. The
// returned error names the failing step.
func (p *Pipeline) Run(ctx context.Context) error {
	for _, step := range p.Steps {
		p.Log.Info("step started", "step", step.Name)
		if err := step.Run(ctx); err != nil {
			p.Log.Error("step failed",
				"step", step.Name,
				"error", err,
				"completed", strings.Join(p.Completed, ", "))
			return fmt.Errorf("step %s: %w", step.Name, err)
		}
		p.Completed = append(p.Completed, step.Name)
		p.Log.Info("step ok", "step", step.Name)
	}
	return nil
}
