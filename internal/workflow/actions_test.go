package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allActionKinds() []ActionKind {
	kinds := make([]ActionKind, 0, len(actionDefs))
	for kind := range actionDefs {
		kinds = append(kinds, kind)
	}
	return kinds
}

func TestActionsFor_TerminalPhasesAreEmpty(t *testing.T) {
	assert.Empty(t, ActionsFor(PhaseCompleted))
	assert.Empty(t, ActionsFor(PhaseFailed))
}

func TestActionsFor_UnknownPhaseIsEmpty(t *testing.T) {
	assert.Empty(t, ActionsFor(Phase("bogus")))
}

func TestActionsFor_NonTerminalPhasesHaveActions(t *testing.T) {
	for _, phase := range AllPhases() {
		if phase.Terminal() {
			continue
		}
		assert.NotEmpty(t, ActionsFor(phase), "phase %s", phase)
	}
}

func TestIsLegal_MatchesActionsFor(t *testing.T) {
	// IsLegal(a, p) must hold exactly when a appears in ActionsFor(p).
	for _, phase := range AllPhases() {
		legal := make(map[ActionKind]bool)
		for _, def := range ActionsFor(phase) {
			legal[def.Kind] = true
		}
		for _, kind := range allActionKinds() {
			assert.Equal(t, legal[kind], IsLegal(kind, phase),
				"phase=%s action=%s", phase, kind)
		}
	}
}

func TestNextPhase_UnmappedPairsAreIdentity(t *testing.T) {
	for _, phase := range AllPhases() {
		for _, kind := range allActionKinds() {
			if _, mapped := transitions[phase][kind]; mapped {
				continue
			}
			assert.Equal(t, phase, NextPhase(phase, kind),
				"unmapped (%s, %s) must be a no-op", phase, kind)
		}
	}
}

func TestNextPhase_MappedPairsStayInVocabulary(t *testing.T) {
	for phase, actions := range transitions {
		for kind, next := range actions {
			assert.True(t, next.Valid(), "(%s, %s) -> %s", phase, kind, next)
		}
	}
}

func TestNextPhase_HappyPath(t *testing.T) {
	steps := []struct {
		phase  Phase
		action ActionKind
		next   Phase
	}{
		{PhaseIssueAssigned, ActionProvisionAgent, PhaseAgentProvisioned},
		{PhaseAgentProvisioned, ActionStartImplementation, PhaseImplementation},
		{PhaseImplementation, ActionCreatePR, PhasePRCreated},
		{PhasePRCreated, ActionRunCI, PhaseCIRunning},
		{PhaseCIRunning, ActionWaitForCI, PhaseReviewPending},
		{PhaseReviewPending, ActionApprovePR, PhaseApproved},
		{PhaseApproved, ActionMergePR, PhaseMerging},
		{PhaseMerging, ActionConfirmMerge, PhaseMerged},
		{PhaseMerged, ActionCleanupWorktree, PhaseCleanup},
		{PhaseCleanup, ActionMarkCompleted, PhaseCompleted},
	}
	for _, step := range steps {
		assert.Equal(t, step.next, NextPhase(step.phase, step.action),
			"(%s, %s)", step.phase, step.action)
	}
}

func TestNextPhase_MarkFailedFromEveryNonTerminalPhase(t *testing.T) {
	// A host must always be able to force a clean terminal transition, even
	// between merge confirmation and cleanup.
	for _, phase := range AllPhases() {
		if phase.Terminal() {
			continue
		}
		assert.Equal(t, PhaseFailed, NextPhase(phase, ActionMarkFailed), "phase %s", phase)
		assert.True(t, IsLegal(ActionMarkFailed, phase), "phase %s", phase)
	}
}

func TestNextPhase_ReviewLoop(t *testing.T) {
	assert.Equal(t, PhaseReviewChangesRequested, NextPhase(PhaseReviewPending, ActionRequestChanges))
	assert.Equal(t, PhaseReviewPending, NextPhase(PhaseReviewChangesRequested, ActionAddressFeedback))
	assert.Equal(t, PhaseCIRunning, NextPhase(PhaseCIFailed, ActionRetryCI))
}

func TestPrimaryAction_LegalInItsPhase(t *testing.T) {
	for _, phase := range AllPhases() {
		def, ok := PrimaryAction(phase)
		if phase.Terminal() {
			assert.False(t, ok, "terminal phase %s has no primary action", phase)
			continue
		}
		require.True(t, ok, "phase %s", phase)
		assert.True(t, IsLegal(def.Kind, phase), "primary %s illegal in %s", def.Kind, phase)
	}
}

func TestPrimaryAction_HappyPathTerminates(t *testing.T) {
	// Following only primary actions must reach Completed without revisiting
	// a phase, otherwise the autonomous policy would loop forever.
	seen := make(map[Phase]bool)
	phase := PhaseIssueAssigned
	for !phase.Terminal() {
		require.False(t, seen[phase], "primary path revisits phase %s", phase)
		seen[phase] = true
		def, ok := PrimaryAction(phase)
		require.True(t, ok)
		phase = NextPhase(phase, def.Kind)
	}
	assert.Equal(t, PhaseCompleted, phase)
}

func TestDefinition(t *testing.T) {
	def, ok := Definition(ActionMarkFailed)
	require.True(t, ok)
	assert.Equal(t, ActionMarkFailed, def.Kind)
	assert.Contains(t, def.Params, "reason")

	_, ok = Definition(ActionKind("bogus"))
	assert.False(t, ok)
}
