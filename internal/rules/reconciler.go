// Package rules keeps the browser's focus blocking rules equal to a desired
// set of domains, touching only the reserved id range.
package rules

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/julianstephens/eyecare/internal/constants"
	"github.com/julianstephens/eyecare/internal/domains"
	"github.com/julianstephens/eyecare/internal/logger"
	"github.com/julianstephens/eyecare/internal/metrics"
	"github.com/julianstephens/eyecare/internal/models"
)

// InRange reports whether id belongs to the reserved focus rule range.
func InRange(id int) bool {
	return id >= constants.RuleIDBase && id < constants.RuleIDBase+constants.RuleIDRangeSize
}

// BuildRules turns domains into redirect rules with consecutive ids from
// RuleIDBase. Domains are normalised, deduplicated and sorted first so the
// same set always yields the same rules; anything beyond the range is
// dropped.
func BuildRules(input []string) []models.Rule {
	set := domains.MustNormalizeAll(input)
	sort.Strings(set)
	if len(set) > constants.RuleIDRangeSize {
		logger.Warn("Blocked domain set exceeds the rule range, truncating",
			"domains", len(set), "limit", constants.RuleIDRangeSize)
		set = set[:constants.RuleIDRangeSize]
	}

	out := make([]models.Rule, len(set))
	for i, d := range set {
		out[i] = models.Rule{
			ID:       constants.RuleIDBase + i,
			Priority: constants.RulePriority,
			Action: models.RuleAction{
				Type:     "redirect",
				Redirect: &models.RuleRedirect{ExtensionPath: constants.BlockPagePath},
			},
			Condition: models.RuleCondition{
				RequestDomains: []string{d},
				ResourceTypes:  []string{constants.ResourceMainFrame},
			},
		}
	}
	return out
}

// DesiredDomains returns the domains a focus session blocks under s.
//
// Blocklist mode blocks the blocklist. Allowlist mode cannot express "block
// everything else" with per-domain rules, so it blocks the reference catalog
// of distracting sites minus the allowlist; sites outside the catalog stay
// reachable.
func DesiredDomains(s models.Settings) []string {
	if !s.UseAllowlistMode {
		return slices.Clone(s.Blocklist)
	}
	allowed := make(map[string]bool, len(s.Allowlist))
	for _, d := range s.Allowlist {
		allowed[d] = true
	}
	var out []string
	for _, d := range constants.ReferenceCatalog {
		if !allowed[d] {
			out = append(out, d)
		}
	}
	return out
}

// Reconciler drives an Engine towards a desired rule set. Apply and Clear
// are serialised so their read and write steps never interleave.
type Reconciler struct {
	mu      sync.Mutex
	engine  Engine
	metrics metrics.Recorder
}

// NewReconciler creates a reconciler. rec may be nil.
func NewReconciler(engine Engine, rec metrics.Recorder) *Reconciler {
	return &Reconciler{engine: engine, metrics: metrics.OrNoop(rec)}
}

// Apply makes the in-range rules block exactly blocked, using the smallest batch.
// No engine mutation happens when they already match.
func (r *Reconciler) Apply(ctx context.Context, blocked []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	desired := BuildRules(blocked)
	current, err := r.currentRules(ctx)
	if err != nil {
		r.metrics.RulesReconciled(ctx, 0, 0, err)
		return err
	}

	want := make(map[int]models.Rule, len(desired))
	for _, rule := range desired {
		want[rule.ID] = rule
	}
	have := make(map[int]models.Rule, len(current))
	for _, rule := range current {
		have[rule.ID] = rule
	}

	var remove []int
	for _, rule := range current {
		if w, ok := want[rule.ID]; !ok || !w.Equal(rule) {
			remove = append(remove, rule.ID)
		}
	}
	var add []models.Rule
	for _, rule := range desired {
		if h, ok := have[rule.ID]; !ok || !h.Equal(rule) {
			add = append(add, rule)
		}
	}

	return r.update(ctx, remove, add)
}

// Clear removes every rule in the reserved range.
func (r *Reconciler) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.currentRules(ctx)
	if err != nil {
		r.metrics.RulesReconciled(ctx, 0, 0, err)
		return err
	}
	ids := make([]int, len(current))
	for i, rule := range current {
		ids[i] = rule.ID
	}
	return r.update(ctx, ids, nil)
}

func (r *Reconciler) currentRules(ctx context.Context) ([]models.Rule, error) {
	all, err := r.engine.GetRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}
	var out []models.Rule
	for _, rule := range all {
		if InRange(rule.ID) {
			out = append(out, rule)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Reconciler) update(ctx context.Context, remove []int, add []models.Rule) error {
	if len(remove) == 0 && len(add) == 0 {
		return nil
	}
	if err := r.engine.UpdateRules(ctx, remove, add); err != nil {
		err = fmt.Errorf("failed to update rules: %w", err)
		r.metrics.RulesReconciled(ctx, 0, 0, err)
		return err
	}
	logger.Debug("Rules reconciled", "added", len(add), "removed", len(remove))
	r.metrics.RulesReconciled(ctx, len(add), len(remove), nil)
	return nil
}
