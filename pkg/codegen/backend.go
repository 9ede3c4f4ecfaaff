package codegen

import (
	"bytes"

	"github.com/ferrite-lang/ferrc/pkg/config"
	"github.com/ferrite-lang/ferrc/pkg/ir"
)

// Backend is the interface that all code generation backends must implement.
type Backend interface {
	// Generate takes an IR program and a configuration, and produces the
	// target assembly as a byte buffer.
	Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error)
}

// NewBackend returns the backend for cfg.Target.
func NewBackend(cfg *config.Config) Backend {
	return NewX86Backend()
}
