package engine

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"peerloop/internal/config"
	"peerloop/internal/knowledge"
	"peerloop/internal/logging"
	"peerloop/internal/notify"
	"peerloop/internal/persona"
	"peerloop/internal/resource"
	"peerloop/internal/safety"
	"peerloop/internal/types"
)

// =============================================================================
// ORCHESTRATOR
// =============================================================================
//
// The Orchestrator is the facade for one incoming message: it classifies
// the conversation phase, selects responders, grounds and composes each
// persona's instructions, invokes the generator per persona with bulkhead
// isolation, and schedules delivery delays. It is stateless between
// invocations; all state is caller-supplied history, so arbitrarily many
// conversations can run concurrently.

// Request is the caller contract's input for one incoming message.
type Request struct {
	SenderID     string
	SenderName   string
	Message      string
	History      []types.ConversationTurn
	DayInProgram int
	Trigger      types.Trigger
}

// Result is the caller contract's output: the safety flag plus the
// scheduled batch. An empty batch is valid ("no reply this turn").
type Result struct {
	RequestID string
	Phase     types.Phase
	Flagged   bool
	Replies   []types.ScheduledReply
}

// Deps wires the orchestrator's collaborators.
type Deps struct {
	Registry  *persona.Registry
	Retriever *knowledge.Retriever
	Resources *resource.Matcher
	Safety    *safety.Classifier
	Generator types.Generator
	Guard     *notify.Guard // optional; nil disables nudge dedup
	Engine    config.EngineConfig
	MaxTokens int
	Rand      *rand.Rand // optional; nil means time-seeded
}

// Orchestrator sequences one incoming message end to end.
type Orchestrator struct {
	reg       *persona.Registry
	retriever *knowledge.Retriever
	resources *resource.Matcher
	safety    *safety.Classifier
	gen       types.Generator
	guard     *notify.Guard

	selector  *Selector
	composer  *Composer
	scheduler *DeliveryScheduler

	maxTokens int
}

// New creates an orchestrator from its dependencies.
func New(deps Deps) *Orchestrator {
	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	// The selector and scheduler lock their RNGs independently, so they
	// must not share one source. Each gets its own, derived from the
	// injected seed to keep fixed-seed runs reproducible.
	selRNG := rand.New(rand.NewSource(rng.Int63()))
	schedRNG := rand.New(rand.NewSource(rng.Int63()))

	maxTokens := deps.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &Orchestrator{
		reg:       deps.Registry,
		retriever: deps.Retriever,
		resources: deps.Resources,
		safety:    deps.Safety,
		gen:       deps.Generator,
		guard:     deps.Guard,
		selector:  NewSelector(deps.Registry, deps.Engine, selRNG),
		composer:  NewComposer(deps.Engine.HistoryWindow),
		scheduler: NewDeliveryScheduler(deps.Engine, schedRNG),
		maxTokens: maxTokens,
	}
}

// HandleMessage is the single public entry point. Only a structurally
// invalid request (no message text on a content-driven path) surfaces as an
// error; everything else degrades to a smaller, possibly empty, batch.
func (o *Orchestrator) HandleMessage(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Message) == "" && req.Trigger == types.TriggerNone {
		return Result{}, types.ErrEmptyMessage
	}

	requestID := uuid.NewString()
	timer := logging.StartTimer(logging.CategoryEngine, "handle_message")
	defer timer.Stop()

	// Safety classification runs alongside selection and generation; it
	// reads the raw message and never alters the reply.
	flaggedCh := make(chan bool, 1)
	go func() {
		flaggedCh <- o.safety.IsFlagged(req.Message)
	}()

	phase := ClassifyPhase(req.SenderName, req.History, req.Trigger)
	result := Result{RequestID: requestID, Phase: phase}

	logging.Engine("req=%s sender=%s phase=%s", requestID, req.SenderID, phase)

	// Proactive nudges are one-shot: the idempotency guard suppresses a
	// duplicate standup or re-engagement inside the dedupe window.
	if o.guard != nil && (phase == types.PhaseDailyStandup || phase == types.PhaseReEngagement) {
		if !o.guard.ShouldSend(req.SenderID, phase.String()) {
			result.Flagged = <-flaggedCh
			return result, nil
		}
	}

	responders := o.selector.SelectResponders(phase, req.Message)
	if len(responders) == 0 {
		result.Flagged = <-flaggedCh
		return result, nil
	}

	// Knowledge grounds only the message-driven phases; scheduled nudges
	// ignore user content entirely. Resources are a coach-only,
	// steady-state-only concern: welcomes and nudges build the
	// relationship, they don't share assets.
	var coachGrounding, peerGrounding string
	if phase == types.PhaseFirstMessage || phase == types.PhaseSteadyState {
		coachGrounding = o.retriever.Retrieve(req.Message, true)
		peerGrounding = o.retriever.Retrieve(req.Message, false)
	}

	var matched *resource.Resource
	if phase == types.PhaseSteadyState && responders[0].IsCoach() {
		matched = o.resources.Match(req.Message)
	}

	texts := o.generateAll(ctx, responders, req, phase, coachGrounding, peerGrounding, matched)

	if len(responders) == 1 {
		result.Replies = o.scheduleSingle(responders[0], texts[0], phase, matched)
	} else {
		result.Replies = o.scheduleEnsemble(responders, texts)
	}

	result.Flagged = <-flaggedCh
	return result, nil
}

// generateAll fans out one generation call per responder. Calls run
// concurrently with bulkhead isolation: a slot that fails or is cancelled
// stays empty without affecting its siblings, and delays are computed
// independently of completion order.
func (o *Orchestrator) generateAll(
	ctx context.Context,
	responders []types.Persona,
	req Request,
	phase types.Phase,
	coachGrounding, peerGrounding string,
	matched *resource.Resource,
) []string {
	texts := make([]string, len(responders))

	var wg sync.WaitGroup
	for i, p := range responders {
		in := ComposeInput{
			Phase:        phase,
			Message:      req.Message,
			SenderName:   req.SenderName,
			DayInProgram: req.DayInProgram,
			History:      req.History,
			Grounding:    peerGrounding,
		}
		if p.IsCoach() {
			in.Grounding = coachGrounding
			in.Resource = matched
		}
		block := o.composer.Compose(p, in)

		wg.Add(1)
		go func(slot int, personaID string, block types.InstructionBlock) {
			defer wg.Done()
			text, err := o.gen.Generate(ctx, block, o.maxTokens)
			if err != nil {
				logging.EngineWarn("persona %s generation dropped: %v", personaID, err)
				return
			}
			texts[slot] = text
		}(i, p.ID, block)
	}
	wg.Wait()

	return texts
}

// scheduleSingle wraps one generated reply. A failed single-reply
// generation substitutes a safe per-phase fallback so the user always
// receives some reply rather than silence.
func (o *Orchestrator) scheduleSingle(p types.Persona, text string, phase types.Phase, matched *resource.Resource) []types.ScheduledReply {
	if text == "" {
		text = fallbackText(phase)
		matched = nil // never attach a resource to a canned line
	}

	reply := types.ScheduledReply{
		PersonaID:     p.ID,
		PersonaName:   p.DisplayName,
		Text:          text,
		SequenceIndex: 0,
	}
	if matched != nil && p.IsCoach() {
		reply.Text = resource.EnsureMarker(reply.Text, matched.ID)
		reply.ResourceID = matched.ID
	}
	reply.DelayMillis = o.scheduler.SingleDelay(len(reply.Text)).Milliseconds()

	return []types.ScheduledReply{reply}
}

// scheduleEnsemble staggers a multi-persona batch. Delays are planned per
// selection slot before failures are considered, so an omitted member
// leaves its successors' timing untouched; survivors are re-indexed with
// strictly increasing sequence numbers.
func (o *Orchestrator) scheduleEnsemble(responders []types.Persona, texts []string) []types.ScheduledReply {
	delays := o.scheduler.WelcomeDelays(len(responders))

	replies := make([]types.ScheduledReply, 0, len(responders))
	for i, p := range responders {
		if texts[i] == "" {
			continue // slot failed; batch degrades gracefully
		}
		replies = append(replies, types.ScheduledReply{
			PersonaID:     p.ID,
			PersonaName:   p.DisplayName,
			Text:          texts[i],
			DelayMillis:   delays[i].Milliseconds(),
			SequenceIndex: len(replies),
		})
	}
	return replies
}

// fallbackText is the safe default reply for a single-responder path whose
// generation failed.
func fallbackText(phase types.Phase) string {
	switch phase {
	case types.PhaseDailyStandup:
		return "Morning everyone! What's your #1 focus for today?"
	case types.PhaseReEngagement:
		return "Hey, we've missed you in here! How's the course going for you?"
	default:
		return "Got it! Let me think about that and get back to you in a bit."
	}
}
