package models

import "slices"

// Rule mirrors a browser declarative network request rule. Only the shape
// used for focus blocking is modelled.
type Rule struct {
	ID        int           `json:"id"`
	Priority  int           `json:"priority"`
	Action    RuleAction    `json:"action"`
	Condition RuleCondition `json:"condition"`
}

type RuleAction struct {
	Type     string        `json:"type"`
	Redirect *RuleRedirect `json:"redirect,omitempty"`
}

type RuleRedirect struct {
	ExtensionPath string `json:"extensionPath,omitempty"`
}

type RuleCondition struct {
	RequestDomains []string `json:"requestDomains,omitempty"`
	ResourceTypes  []string `json:"resourceTypes,omitempty"`
}

// Equal reports whether two rules would behave identically.
func (r Rule) Equal(o Rule) bool {
	if r.ID != o.ID || r.Priority != o.Priority || r.Action.Type != o.Action.Type {
		return false
	}
	if (r.Action.Redirect == nil) != (o.Action.Redirect == nil) {
		return false
	}
	if r.Action.Redirect != nil && r.Action.Redirect.ExtensionPath != o.Action.Redirect.ExtensionPath {
		return false
	}
	return slices.Equal(r.Condition.RequestDomains, o.Condition.RequestDomains) &&
		slices.Equal(r.Condition.ResourceTypes, o.Condition.ResourceTypes)
}
