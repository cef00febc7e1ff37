package projection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrUnknownModel = errors.New("unknown model")

// Runner computes one projection from loose parameters and returns the API
// payload.
type Runner func(ctx context.Context, params Params) (interface{}, error)

// Registry manages the runners available to the dispatch layer
type Registry interface {
	// Register adds a runner under a model name
	Register(model string, runner Runner) error
	// Get returns the runner registered for model
	Get(model string) (Runner, error)
	// ListModels returns the registered model names, sorted
	ListModels() []string
}

type registry struct {
	mu      sync.RWMutex
	runners map[string]Runner
}

func NewRegistry() Registry {
	return &registry{
		runners: make(map[string]Runner),
	}
}

func (r *registry) Register(model string, runner Runner) error {
	if model == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if runner == nil {
		return fmt.Errorf("runner cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.runners[model]; exists {
		return fmt.Errorf("model %q is already registered", model)
	}

	r.runners[model] = runner
	return nil
}

func (r *registry) Get(model string) (Runner, error) {
	r.mu.RLock()
	runner, exists := r.runners[model]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w %q", ErrUnknownModel, model)
	}
	return runner, nil
}

func (r *registry) ListModels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]string, 0, len(r.runners))
	for model := range r.runners {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}
