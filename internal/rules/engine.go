package rules

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/julianstephens/eyecare/internal/models"
)

// Engine is the browser's declarative rule store. UpdateRules applies the
// removals and additions as one atomic batch.
type Engine interface {
	GetRules(ctx context.Context) ([]models.Rule, error)
	UpdateRules(ctx context.Context, removeIDs []int, add []models.Rule) error
}

// ErrEngineUnavailable is returned by engines that cannot reach the browser.
var ErrEngineUnavailable = errors.New("rule engine unavailable")

// MemoryEngine is an in-process Engine. It backs the agent when no browser
// is attached and lets tests count mutations.
type MemoryEngine struct {
	mu       sync.Mutex
	rules    map[int]models.Rule
	updates  int
	failNext error
}

func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{rules: make(map[int]models.Rule)}
}

func (e *MemoryEngine) GetRules(ctx context.Context) ([]models.Rule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.takeFailure(); err != nil {
		return nil, err
	}
	out := make([]models.Rule, 0, len(e.rules))
	for _, r := range e.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (e *MemoryEngine) UpdateRules(ctx context.Context, removeIDs []int, add []models.Rule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.takeFailure(); err != nil {
		return err
	}

	next := make(map[int]models.Rule, len(e.rules))
	for id, r := range e.rules {
		next[id] = r
	}
	for _, id := range removeIDs {
		delete(next, id)
	}
	for _, r := range add {
		if _, exists := next[r.ID]; exists {
			return fmt.Errorf("rule with id %d already exists", r.ID)
		}
		next[r.ID] = r
	}
	e.rules = next
	e.updates++
	return nil
}

// Updates returns how many batches were applied.
func (e *MemoryEngine) Updates() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.updates
}

// Seed installs rules directly, bypassing the update counter.
func (e *MemoryEngine) Seed(rules ...models.Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range rules {
		e.rules[r.ID] = r
	}
}

// FailNext makes the next engine call return err.
func (e *MemoryEngine) FailNext(err error) {
	e.mu.Lock()
	e.failNext = err
	e.mu.Unlock()
}

func (e *MemoryEngine) takeFailure() error {
	err := e.failNext
	e.failNext = nil
	return err
}
