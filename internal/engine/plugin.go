package engine

import (
	"context"

	"github.com/fyrsmithlabs/orchd/internal/state"
	"github.com/fyrsmithlabs/orchd/internal/workflow"
)

// Plugin is the headless contract a workflow implementation exposes to
// hosts: execute one action at a time, advertise what is currently legal,
// and hand out state snapshots. Registries and trackers hold plugins, not
// concrete engines, so workflow variants can ship their own implementation.
type Plugin interface {
	ExecuteAction(ctx context.Context, action Action) Outcome
	AvailableActions() []workflow.ActionDefinition
	PrimaryAction() (workflow.ActionDefinition, bool)
	SuggestedParams(def workflow.ActionDefinition) map[string]any
	IsComplete() bool
	Snapshot() *state.Run
}

var _ Plugin = (*Engine)(nil)
