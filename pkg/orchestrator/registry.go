package orchestrator

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/KaifAhmad1/repo-analyzer/internal/config"
	"github.com/KaifAhmad1/repo-analyzer/pkg/protocol"
)

// operationRegistry maps (worker, operation) to its compiled argument schema.
// Built once at startup; unknown pairs are refused before any process is
// touched.
type operationRegistry struct {
	schemas map[string]*gojsonschema.Schema
	known   map[string]bool
	workers map[string]bool
}

func key(worker, operation string) string {
	return worker + "." + operation
}

// buildRegistry compiles every declared operation schema. Compilation errors
// fail startup; config.Validate has usually caught them already.
func buildRegistry(workers []config.WorkerConfig) (*operationRegistry, error) {
	r := &operationRegistry{
		schemas: make(map[string]*gojsonschema.Schema),
		known:   make(map[string]bool),
		workers: make(map[string]bool, len(workers)),
	}

	for _, w := range workers {
		r.workers[w.Name] = true
		for _, op := range w.Operations {
			k := key(w.Name, op.Name)
			r.known[k] = true
			if op.Schema == nil {
				continue
			}
			schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(op.Schema))
			if err != nil {
				return nil, fmt.Errorf("compile schema for %s: %w", k, err)
			}
			r.schemas[k] = schema
		}
	}
	return r, nil
}

// resolve refuses unknown worker or operation names.
func (r *operationRegistry) resolve(worker, operation string) error {
	if !r.workers[worker] {
		return protocol.NewCallError(protocol.ErrKindNotFound, "unknown worker: %s", worker)
	}
	if !r.known[key(worker, operation)] {
		return protocol.NewCallError(protocol.ErrKindNotFound, "worker %s has no operation %s", worker, operation)
	}
	return nil
}

// validateArgs checks an argument map against the operation's schema, when
// one is declared.
func (r *operationRegistry) validateArgs(worker, operation string, args map[string]interface{}) error {
	schema, ok := r.schemas[key(worker, operation)]
	if !ok {
		return nil
	}

	if args == nil {
		args = map[string]interface{}{}
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return protocol.NewCallError(protocol.ErrKindProtocol, "validate arguments for %s.%s: %v", worker, operation, err)
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return protocol.NewCallError(protocol.ErrKindProtocol, "invalid arguments for %s.%s: %s", worker, operation, first.String())
	}
	return nil
}
