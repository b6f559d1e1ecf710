// Package engine implements the conversational orchestration core: phase
// classification, responder selection, instruction composition, delivery
// scheduling, and the orchestrator facade that ties them together for one
// incoming message.
package engine

import (
	"peerloop/internal/types"
)

// ClassifyPhase selects the orchestration path for an incoming message.
// Pure function, no side effects.
//
// Explicit standup/re-engagement triggers pass through untouched: they are
// caller-initiated, never inferred from content. Otherwise the phase is
// first_message when no prior turn authored by the sender exists in
// history, and steady_state when one does. Ordering of the history is
// irrelevant; only presence matters, so malformed (non-chronological)
// history is tolerated.
func ClassifyPhase(senderLabel string, history []types.ConversationTurn, explicit types.Trigger) types.Phase {
	switch explicit {
	case types.TriggerDailyStandup:
		return types.PhaseDailyStandup
	case types.TriggerReEngagement:
		return types.PhaseReEngagement
	}

	for _, turn := range history {
		if turn.SenderLabel == senderLabel {
			return types.PhaseSteadyState
		}
	}
	return types.PhaseFirstMessage
}
