// Package main implements the peerloop CLI. This file wires configuration,
// storage, catalogs, and the generator into a ready orchestrator.
package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"peerloop/internal/catalog"
	"peerloop/internal/config"
	"peerloop/internal/engine"
	"peerloop/internal/generation"
	"peerloop/internal/knowledge"
	"peerloop/internal/logging"
	"peerloop/internal/notify"
	"peerloop/internal/resource"
	"peerloop/internal/safety"
	"peerloop/internal/store"
	"peerloop/internal/types"
)

// app holds the wired runtime for one CLI invocation. A catalog reload swaps
// the orchestrator wholesale; in-flight requests keep the instance they
// started with.
type app struct {
	cfg   *config.Config
	store *store.Store
	guard *notify.Guard
	gen   types.Generator

	mu      sync.RWMutex
	orch    *engine.Orchestrator
	watcher *catalog.Watcher
}

// bootApp loads config, opens the store, loads the catalog, and builds the
// orchestrator. watch enables catalog hot reload for long-running commands.
func bootApp(ctx context.Context, watch bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := logging.Initialize(logging.Settings{
		DebugMode:  cfg.Logging.DebugMode || verbose,
		Level:      cfg.Logging.Level,
		Directory:  cfg.Logging.Directory,
		Categories: cfg.Logging.Categories,
		JSONFormat: cfg.Logging.JSONFormat,
	}); err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Load(cfg.Catalog.Dir)
	if err != nil {
		st.Close()
		return nil, err
	}
	if err := cat.Validate(); err != nil {
		st.Close()
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}

	gen, err := buildGenerator(ctx, cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	a := &app{
		cfg:   cfg,
		store: st,
		guard: notify.NewGuard(cfg.Engine.NudgeWindow()),
		gen:   gen,
	}
	if err := a.swapCatalog(cat); err != nil {
		st.Close()
		return nil, err
	}

	if watch && cfg.Catalog.Watch {
		w, err := catalog.NewWatcher(cfg.Catalog.Dir, func(next *catalog.Catalog) {
			if err := a.swapCatalog(next); err != nil {
				logging.CatalogError("reload rejected: %v", err)
			}
		})
		if err != nil {
			logging.CatalogError("watcher unavailable: %v", err)
		} else if err := w.Start(ctx); err != nil {
			logging.CatalogError("watcher failed to start: %v", err)
		} else {
			a.watcher = w
		}
	}

	logging.Boot("peerloop booted: provider=%s personas=%d", cfg.LLM.Provider, len(cat.Personas))
	return a, nil
}

// swapCatalog rebuilds the orchestrator from a catalog snapshot.
func (a *app) swapCatalog(cat *catalog.Catalog) error {
	reg, err := cat.Registry()
	if err != nil {
		return err
	}
	orch := engine.New(engine.Deps{
		Registry: reg,
		Retriever: knowledge.NewRetriever(cat.Knowledge,
			knowledge.WithGeneralCap(a.cfg.Engine.GeneralKnowledgeCap),
			knowledge.WithMinTokenLength(a.cfg.Engine.MinTokenLength)),
		Resources: resource.NewMatcher(cat.Resources),
		Safety:    safety.NewClassifier(a.cfg.Safety.ExtraTerms...),
		Generator: a.gen,
		Guard:     a.guard,
		Engine:    a.cfg.Engine,
		MaxTokens: a.cfg.LLM.MaxTokens,
	})

	a.mu.Lock()
	a.orch = orch
	a.mu.Unlock()
	return nil
}

// orchestrator returns the current orchestrator instance.
func (a *app) orchestrator() *engine.Orchestrator {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.orch
}

// handle runs one request against the store-backed context: history and
// enrollment day are read per call, and both the learner turn and the
// resulting replies are appended to the conversation log.
func (a *app) handle(ctx context.Context, learnerID, message string, trigger types.Trigger) (engine.Result, error) {
	history, err := a.store.History(ctx, learnerID, 0)
	if err != nil {
		return engine.Result{}, err
	}
	name, err := a.store.LearnerName(ctx, learnerID)
	if err != nil {
		return engine.Result{}, err
	}
	day, err := a.store.DaysSinceEnrollment(ctx, learnerID)
	if err != nil {
		return engine.Result{}, err
	}

	// The in-process guard dedupes within this run; the nudge log dedupes
	// across runs (a retried cron job spawns a fresh process).
	if trigger != types.TriggerNone {
		issued, ok, err := a.store.LastNudge(ctx, learnerID, string(trigger))
		if err != nil {
			return engine.Result{}, err
		}
		if ok && time.Since(issued) < a.cfg.Engine.NudgeWindow() {
			logging.Notify("suppressed %s for %s (issued %v ago)", trigger, learnerID, time.Since(issued))
			return engine.Result{Phase: engine.ClassifyPhase(learnerID, nil, trigger)}, nil
		}
	}

	res, err := a.orchestrator().HandleMessage(ctx, engine.Request{
		SenderID:     learnerID,
		SenderName:   name,
		Message:      message,
		History:      history,
		DayInProgram: day,
		Trigger:      trigger,
	})
	if err != nil {
		return res, err
	}

	if message != "" {
		if err := a.store.AppendTurn(ctx, learnerID, types.ConversationTurn{
			SenderLabel: name, Text: message,
		}); err != nil {
			return res, err
		}
	}
	for _, r := range res.Replies {
		if err := a.store.AppendTurn(ctx, learnerID, types.ConversationTurn{
			SenderLabel: r.PersonaName, Text: r.Text,
		}); err != nil {
			return res, err
		}
	}
	if trigger != types.TriggerNone && len(res.Replies) > 0 {
		if err := a.store.RecordNudge(ctx, learnerID, string(trigger)); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Close releases the watcher and the store.
func (a *app) Close() error {
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	return a.store.Close()
}

// buildGenerator creates the configured generator backend.
func buildGenerator(ctx context.Context, cfg *config.Config) (types.Generator, error) {
	switch cfg.LLM.Provider {
	case "scripted":
		return generation.NewScripted(), nil
	case "genai", "":
		return generation.NewGenAIClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}
