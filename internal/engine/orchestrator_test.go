package engine

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"peerloop/internal/config"
	"peerloop/internal/generation"
	"peerloop/internal/knowledge"
	"peerloop/internal/notify"
	"peerloop/internal/persona"
	"peerloop/internal/resource"
	"peerloop/internal/safety"
	"peerloop/internal/types"
)

func TestMain(m *testing.M) {
	// go.opencensus.io (an indirect dependency) starts a background stats
	// worker in its package init; it is not spawned by the code under test.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// testFixture bundles an orchestrator with its scripted generator so tests
// can assert on what each persona was asked.
type testFixture struct {
	orch *Orchestrator
	gen  *generation.Scripted
}

func newFixture(t *testing.T, seed int64, mutate func(*Deps)) *testFixture {
	t.Helper()

	gen := generation.NewScripted()
	deps := Deps{
		Registry: persona.DefaultRegistry(),
		Retriever: knowledge.NewRetriever([]knowledge.Entry{
			{Question: "When are coaching calls?", Answer: "Tuesdays at 10am.", Tier: knowledge.TierCoach},
			{Question: "Where is the worksheet for module 2?", Answer: "Under Resources.", Tier: knowledge.TierGeneral},
		}),
		Resources: resource.NewMatcher([]resource.Resource{
			{ID: "worksheet-m2", Title: "Module 2 Worksheet", TriggerKeywords: []string{"worksheet"}},
		}),
		Safety:    safety.NewClassifier(),
		Generator: gen,
		Guard:     notify.NewGuard(time.Hour),
		Engine:    config.DefaultConfig().Engine,
		Rand:      rand.New(rand.NewSource(seed)),
	}
	if mutate != nil {
		mutate(&deps)
	}
	return &testFixture{orch: New(deps), gen: gen}
}

// singlePeerRegistry pins the welcome ensemble to coach + jess, making
// ensemble-degradation tests deterministic.
func singlePeerRegistry(t *testing.T) *persona.Registry {
	t.Helper()
	roster := persona.DefaultRoster()
	reg, err := persona.NewRegistry([]types.Persona{roster[0], roster[1]})
	require.NoError(t, err)
	return reg
}

var steadyHistory = []types.ConversationTurn{
	{SenderLabel: "Alex", Text: "earlier message"},
}

func TestHandleMessageRejectsEmptyMessage(t *testing.T) {
	f := newFixture(t, 1, nil)

	_, err := f.orch.HandleMessage(context.Background(), Request{
		SenderID: "l1", SenderName: "Alex", Message: "   ",
	})
	require.ErrorIs(t, err, types.ErrEmptyMessage)
	assert.Zero(t, f.gen.CallCount(), "no generation should run for an invalid request")
}

func TestFirstMessageTriggersWelcomeEnsemble(t *testing.T) {
	f := newFixture(t, 7, nil)

	res, err := f.orch.HandleMessage(context.Background(), Request{
		SenderID: "l1", SenderName: "Alex", Message: "hi, just joined the program!",
	})
	require.NoError(t, err)

	assert.Equal(t, types.PhaseFirstMessage, res.Phase)
	assert.NotEmpty(t, res.RequestID)
	require.GreaterOrEqual(t, len(res.Replies), 3)
	require.LessOrEqual(t, len(res.Replies), 4)

	assert.Equal(t, "coach-maya", res.Replies[0].PersonaID, "coach speaks first")
	coachDelay := time.Duration(res.Replies[0].DelayMillis) * time.Millisecond
	assert.GreaterOrEqual(t, coachDelay, 5*time.Second)
	assert.LessOrEqual(t, coachDelay, 10*time.Second)

	for i, r := range res.Replies {
		assert.Equal(t, i, r.SequenceIndex)
		assert.Empty(t, r.ResourceID, "welcome replies never attach resources")
		if i > 0 {
			peerDelay := time.Duration(r.DelayMillis) * time.Millisecond
			assert.GreaterOrEqual(t, peerDelay, 30*time.Second, "peer welcomes arrive on a slow cadence")
		}
	}
}

func TestQuestionRoutesToCoachWithGrounding(t *testing.T) {
	f := newFixture(t, 1, nil)
	f.gen.ByPersona = map[string]string{"coach-maya": "Calls are Tuesdays at 10am, see you there!"}

	res, err := f.orch.HandleMessage(context.Background(), Request{
		SenderID: "l1", SenderName: "Alex",
		Message: "when are the coaching calls?",
		History: steadyHistory,
	})
	require.NoError(t, err)

	assert.Equal(t, types.PhaseSteadyState, res.Phase)
	require.Len(t, res.Replies, 1)
	assert.Equal(t, "coach-maya", res.Replies[0].PersonaID)
	assert.Equal(t, "Calls are Tuesdays at 10am, see you there!", res.Replies[0].Text)

	calls := f.gen.CallsFor("coach-maya")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].User, "Tuesdays at 10am", "coach grounding should include the coach-tier entry")
}

func TestPeersNeverSeeCoachTierKnowledge(t *testing.T) {
	f := newFixture(t, 7, nil)

	_, err := f.orch.HandleMessage(context.Background(), Request{
		SenderID: "l1", SenderName: "Alex",
		Message: "hi! when are the coaching calls and where is the worksheet?",
	})
	require.NoError(t, err)

	for _, call := range f.gen.Calls {
		if call.PersonaID == "coach-maya" {
			continue
		}
		assert.NotContains(t, call.User, "Tuesdays at 10am",
			"peer %s received coach-tier grounding", call.PersonaID)
	}
}

func TestCoachReplyAttachesMatchedResource(t *testing.T) {
	f := newFixture(t, 1, nil)
	// Generator "forgets" the marker; the orchestrator must restore it.
	f.gen.ByPersona = map[string]string{"coach-maya": "It's under Resources in module 2."}

	res, err := f.orch.HandleMessage(context.Background(), Request{
		SenderID: "l1", SenderName: "Alex",
		Message: "where do I find the worksheet?",
		History: steadyHistory,
	})
	require.NoError(t, err)

	require.Len(t, res.Replies, 1)
	r := res.Replies[0]
	assert.Equal(t, "worksheet-m2", r.ResourceID)
	assert.True(t, strings.HasSuffix(r.Text, resource.Marker("worksheet-m2")),
		"reply should end with the attachment marker: %q", r.Text)

	_, id, ok := resource.ParseMarker(r.Text)
	require.True(t, ok)
	assert.Equal(t, "worksheet-m2", id)
}

func TestSingleReplyFallsBackWhenGenerationFails(t *testing.T) {
	f := newFixture(t, 1, nil)
	f.gen.Fail = map[string]error{"coach-maya": errors.New("provider down")}

	res, err := f.orch.HandleMessage(context.Background(), Request{
		SenderID: "l1", SenderName: "Alex",
		Message: "where do I find the worksheet?",
		History: steadyHistory,
	})
	require.NoError(t, err, "generation failure must not surface as a request error")

	require.Len(t, res.Replies, 1)
	r := res.Replies[0]
	assert.NotEmpty(t, r.Text)
	assert.Empty(t, r.ResourceID, "canned fallbacks never carry attachments")
	_, _, ok := resource.ParseMarker(r.Text)
	assert.False(t, ok)
}

func TestEnsembleOmitsFailedSlotAndKeepsTiming(t *testing.T) {
	f := newFixture(t, 3, func(d *Deps) { d.Registry = singlePeerRegistry(t) })
	f.gen.Fail = map[string]error{"peer-jess": errors.New("provider down")}

	res, err := f.orch.HandleMessage(context.Background(), Request{
		SenderID: "l1", SenderName: "Alex", Message: "hello everyone, first day!",
	})
	require.NoError(t, err)

	require.Len(t, res.Replies, 1, "failed peer slot should be omitted")
	assert.Equal(t, "coach-maya", res.Replies[0].PersonaID)
	assert.Equal(t, 0, res.Replies[0].SequenceIndex)
}

func TestEnsembleSurvivesCoachFailure(t *testing.T) {
	f := newFixture(t, 3, func(d *Deps) { d.Registry = singlePeerRegistry(t) })
	f.gen.Fail = map[string]error{"coach-maya": errors.New("provider down")}

	res, err := f.orch.HandleMessage(context.Background(), Request{
		SenderID: "l1", SenderName: "Alex", Message: "hello everyone, first day!",
	})
	require.NoError(t, err)

	require.Len(t, res.Replies, 1)
	r := res.Replies[0]
	assert.Equal(t, "peer-jess", r.PersonaID)
	assert.Equal(t, 0, r.SequenceIndex, "survivors are re-indexed from zero")
	// The peer keeps its planned slot delay; it does not inherit the coach's.
	assert.GreaterOrEqual(t, time.Duration(r.DelayMillis)*time.Millisecond, 30*time.Second)
}

func TestStandupTriggerIsCoachOnlyAndDeduped(t *testing.T) {
	f := newFixture(t, 1, nil)

	req := Request{SenderID: "l1", SenderName: "Alex", Trigger: types.TriggerDailyStandup}

	res, err := f.orch.HandleMessage(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, types.PhaseDailyStandup, res.Phase)
	require.Len(t, res.Replies, 1)
	assert.Equal(t, "coach-maya", res.Replies[0].PersonaID)

	// Second standup inside the window is suppressed, not errored.
	res2, err := f.orch.HandleMessage(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, res2.Replies)
}

func TestReEngagementAllowsEmptyMessage(t *testing.T) {
	f := newFixture(t, 1, nil)

	res, err := f.orch.HandleMessage(context.Background(), Request{
		SenderID: "l1", SenderName: "Alex", Trigger: types.TriggerReEngagement,
	})
	require.NoError(t, err)
	assert.Equal(t, types.PhaseReEngagement, res.Phase)
	require.Len(t, res.Replies, 1)
}

func TestRiskLanguageFlagsWithoutAlteringReply(t *testing.T) {
	f := newFixture(t, 1, func(d *Deps) {
		cfg := config.DefaultConfig().Engine
		cfg.CoachSubstitutionRate = 0
		d.Engine = cfg
	})
	f.gen.Default = "that sounds rough, hang in there"

	res, err := f.orch.HandleMessage(context.Background(), Request{
		SenderID: "l1", SenderName: "Alex",
		Message: "honestly thinking about asking for a refund",
		History: steadyHistory,
	})
	require.NoError(t, err)

	assert.True(t, res.Flagged)
	require.Len(t, res.Replies, 1, "flagging never suppresses the reply")
	assert.Equal(t, "that sounds rough, hang in there", res.Replies[0].Text)
}

func TestCleanMessageIsNotFlagged(t *testing.T) {
	f := newFixture(t, 1, nil)

	res, err := f.orch.HandleMessage(context.Background(), Request{
		SenderID: "l1", SenderName: "Alex",
		Message: "finished module 3 today, feeling good",
		History: steadyHistory,
	})
	require.NoError(t, err)
	assert.False(t, res.Flagged)
}

func TestConcurrentConversationsDoNotInterfere(t *testing.T) {
	f := newFixture(t, 5, nil)

	const n = 16
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := f.orch.HandleMessage(context.Background(), Request{
				SenderID: "l1", SenderName: "Alex",
				Message: "how does module 2 work?",
				History: steadyHistory,
			})
			errCh <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errCh)
	}
}

func TestConcurrentRandomSelectionAndScheduling(t *testing.T) {
	// No-keyword messages draw from the selector's RNG (random peer with
	// coach substitution) while sibling requests draw from the scheduler's
	// (delay bands), exercising both random paths under the race detector.
	f := newFixture(t, 9, nil)

	const goroutines = 32
	const perGoroutine = 25
	errCh := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			for j := 0; j < perGoroutine; j++ {
				res, err := f.orch.HandleMessage(context.Background(), Request{
					SenderID: "l1", SenderName: "Alex",
					Message: "finished the morning exercises today",
					History: steadyHistory,
				})
				if err != nil {
					errCh <- err
					return
				}
				if len(res.Replies) != 1 {
					errCh <- errors.New("steady-state batch lost its reply")
					return
				}
			}
			errCh <- nil
		}()
	}
	for i := 0; i < goroutines; i++ {
		require.NoError(t, <-errCh)
	}
}
