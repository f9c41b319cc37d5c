package bridge

import (
	"context"
	"fmt"

	"github.com/julianstephens/eyecare/internal/models"
	"github.com/julianstephens/eyecare/internal/rules"
)

// Engine forwards rule engine calls to the browser.
type Engine struct {
	host *Host
}

func NewEngine(host *Host) *Engine {
	return &Engine{host: host}
}

func (e *Engine) GetRules(ctx context.Context) ([]models.Rule, error) {
	res, err := e.host.Call(ctx, Envelope{Kind: KindGetRules})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rules.ErrEngineUnavailable, err)
	}
	return res.Rules, nil
}

func (e *Engine) UpdateRules(ctx context.Context, removeIDs []int, add []models.Rule) error {
	_, err := e.host.Call(ctx, Envelope{
		Kind:          KindUpdateRules,
		RemoveRuleIDs: removeIDs,
		AddRules:      add,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", rules.ErrEngineUnavailable, err)
	}
	return nil
}
