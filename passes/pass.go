// Package passes contains the optimization passes and their runner.
package passes

import (
	"fmt"

	"github.com/wasmkit/wopt/ir"
)

// A Pass transforms a module in place.
type Pass interface {
	Name() string
	Run(module *ir.Module) error
}

// Runner runs a fixed sequence of passes over a module, in order.
type Runner struct {
	passes []Pass
}

func NewRunner(passes ...Pass) *Runner {
	return &Runner{
		passes: passes,
	}
}

func (r *Runner) Run(module *ir.Module) error {
	for _, pass := range r.passes {
		if err := pass.Run(module); err != nil {
			return fmt.Errorf("pass %s: %w", pass.Name(), err)
		}
	}
	return nil
}
