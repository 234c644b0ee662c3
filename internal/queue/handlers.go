package queue

import (
	"context"

	"github.com/hibiken/asynq"
)

// Registry assembles the worker mux in one place so task types and their
// handlers stay next to each other at startup.
type Registry struct {
	mux *asynq.ServeMux
}

func NewRegistry() *Registry {
	return &Registry{mux: asynq.NewServeMux()}
}

func (r *Registry) HandleFunc(taskType string, h func(context.Context, *asynq.Task) error) {
	r.mux.HandleFunc(taskType, h)
}

func (r *Registry) Mux() *asynq.ServeMux {
	return r.mux
}
