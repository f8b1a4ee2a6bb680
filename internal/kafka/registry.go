package kafka

import (
	"context"
	"errors"
	"orderconsumer/internal/interfaces"
	"sort"
	"sync"
)

// A Registry tracks the running consumers by group id
type Registry struct {
	mu        sync.RWMutex
	consumers map[string]*Consumer
}

func NewRegistry() *Registry {
	return &Registry{consumers: make(map[string]*Consumer)}
}

// Add registers c, replacing any consumer with the same group id
func (r *Registry) Add(c *Consumer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consumers[c.GroupID()] = c
}

// Get returns the consumer controls of groupID
func (r *Registry) Get(groupID string) (interfaces.ConsumerControl, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.consumers[groupID]
	if !ok {
		return nil, false
	}
	return c, true
}

// List returns the controls of every consumer ordered by group id
func (r *Registry) List() []interfaces.ConsumerControl {
	r.mu.RLock()
	defer r.mu.RUnlock()

	controls := make([]interfaces.ConsumerControl, 0, len(r.consumers))
	for _, c := range r.consumers {
		controls = append(controls, c)
	}
	sort.Slice(controls, func(i, j int) bool { return controls[i].GroupID() < controls[j].GroupID() })
	return controls
}

// StartAll starts every registered consumer
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.consumers {
		if err := c.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// StopAll stops every registered consumer and joins their errors
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, c := range r.consumers {
		if err := c.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
