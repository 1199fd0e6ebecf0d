package main

import (
	"context"
	"fmt"
	"time"

	"github.com/odvcencio/focusboard/pkg/advisor"
	"github.com/odvcencio/focusboard/pkg/bus"
	"github.com/odvcencio/focusboard/pkg/config"
	"github.com/odvcencio/focusboard/pkg/detector"
	"github.com/odvcencio/focusboard/pkg/executor"
	"github.com/odvcencio/focusboard/pkg/logging"
	"github.com/odvcencio/focusboard/pkg/pipeline"
	"github.com/odvcencio/focusboard/pkg/query"
	"github.com/odvcencio/focusboard/pkg/session"
	"github.com/odvcencio/focusboard/pkg/skillbook"
	"github.com/odvcencio/focusboard/pkg/state"
	"github.com/odvcencio/focusboard/pkg/telemetry"
)

// appRuntime bundles every long-lived collaborator a command needs.
// Build one with initRuntime and Close it when the command finishes.
type appRuntime struct {
	cfg        *config.Config
	sessionID  string
	logger     *logging.Logger
	store      *state.Store
	book       *skillbook.Book
	queries    *query.Answerer
	exec       *executor.Executor
	pipe       *pipeline.Pipeline
	hub        *telemetry.Hub
	mb         bus.MessageBus
	bridge     *pipeline.BusBridge
	watcher    *state.Watcher
	tracer     *telemetry.TracerProvider
	transcript *logging.TranscriptLogger
}

// initRuntimeFn allows tests to stub dependency initialization.
var initRuntimeFn = initRuntime

func initRuntime(cfg *config.Config, sessionID string) (*appRuntime, error) {
	if sessionID == "" {
		sessionID = session.DefaultSessionID()
	}

	logger, err := logging.NewLogger(cfg.Logging.Dir, sessionID)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	if cfg.Logging.Level != "" {
		logger.SetMinLevel(logging.Level(cfg.Logging.Level))
	}

	rt := &appRuntime{cfg: cfg, sessionID: sessionID, logger: logger}

	store := state.NewStore(cfg.State.Path, logger)
	if err := store.Load(); err != nil {
		rt.Close()
		return nil, fmt.Errorf("load state: %w", err)
	}
	rt.store = store

	// A calendar day may have rolled over since the last run; clear done
	// flags and advance the streak before anything reads the document.
	if reset, err := store.ResetForNewDay(); err != nil {
		logger.Warn(logging.CategoryState, "daily_reset_failed", "daily reset skipped", map[string]any{
			"error": err.Error(),
		})
	} else if reset {
		logger.Info(logging.CategoryState, "daily_reset", "new day, daily tasks re-armed", nil)
	}

	book, err := skillbook.OpenWithHistory(cfg.Skillbook.Path, cfg.Skillbook.HistoryLimit)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("open skillbook: %w", err)
	}
	rt.book = book

	mb, err := openBus(cfg.Bus)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.mb = mb

	rt.hub = telemetry.NewHub()

	bridge, err := pipeline.NewBusBridge(context.Background(), mb, cfg.Bus.SubjectPrefix, rt.hub)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("bus bridge: %w", err)
	}
	rt.bridge = bridge

	if cfg.Tracing.Enabled {
		tracer, err := telemetry.NewTracerProvider("focusboard", version)
		if err != nil {
			logger.Warn(logging.CategoryConfig, "tracing_init_failed", "continuing without traces", map[string]any{
				"error": err.Error(),
			})
		} else {
			rt.tracer = tracer
		}
	}

	if cfg.State.WatchForChanges {
		watcher, err := state.NewWatcher(store, logger, func() {
			rt.hub.Publish(telemetry.Event{Type: telemetry.EventStateReloaded})
		})
		if err != nil {
			logger.Warn(logging.CategoryState, "watch_init_failed", "continuing without file watching", map[string]any{
				"error": err.Error(),
			})
		} else if err := watcher.Start(context.Background()); err != nil {
			logger.Warn(logging.CategoryState, "watch_start_failed", "continuing without file watching", map[string]any{
				"error": err.Error(),
			})
		} else {
			rt.watcher = watcher
		}
	}

	suggester := advisor.New(cfg.Advisor, logger)
	if suggester.Enabled() {
		tl, err := logging.NewTranscriptLogger(cfg.Logging.Dir)
		if err != nil {
			logger.Warn(logging.CategoryAdvisor, "transcript_init_failed", "continuing without advisor transcript", map[string]any{
				"error": err.Error(),
			})
		} else {
			suggester.SetTranscript(tl)
			rt.transcript = tl
		}
	}

	rt.queries = query.New(store)
	rt.exec = executor.New(store, book, mb, cfg.Bus.SubjectPrefix, logger)
	rt.pipe = pipeline.New(pipeline.Deps{
		Detector:         detector.New(),
		Suggester:        suggester,
		Queries:          rt.queries,
		Pending:          session.NewStore(cfg.Session.PendingTTL()),
		Executor:         rt.exec,
		Hub:              rt.hub,
		Logger:           logger,
		MaxClarifyRounds: cfg.Session.MaxClarifyRounds,
	})

	return rt, nil
}

func openBus(cfg config.BusConfig) (bus.MessageBus, error) {
	if cfg.Driver == "nats" {
		bc := bus.DefaultConfig()
		if cfg.URL != "" {
			bc.URL = cfg.URL
		}
		mb, err := bus.NewNATSBus(bc)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		return mb, nil
	}
	return bus.NewMemoryBus(), nil
}

// Close releases runtime resources in reverse construction order. Safe
// on a partially constructed runtime.
func (rt *appRuntime) Close() {
	if rt == nil {
		return
	}
	if rt.watcher != nil {
		_ = rt.watcher.Stop()
	}
	if rt.bridge != nil {
		rt.bridge.Stop()
	}
	if rt.hub != nil {
		rt.hub.Close()
	}
	if rt.mb != nil {
		_ = rt.mb.Close()
	}
	if rt.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = rt.tracer.Shutdown(ctx)
		cancel()
	}
	if rt.book != nil {
		_ = rt.book.Close()
	}
	if rt.transcript != nil {
		_ = rt.transcript.Close()
	}
	if rt.logger != nil {
		_ = rt.logger.Close()
	}
}
