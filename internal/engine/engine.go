// Package engine wires every other package into a single runnable
// workflow run. Grounded on the teacher's ExecutionManager
// (internal/application/engine/execution_manager.go): a constructor
// that builds each sub-component in dependency order and stores the
// finished graph on one struct, plus a thin Start/Close lifecycle.
package engine

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smilemakc/noteflow/internal/action"
	"github.com/smilemakc/noteflow/internal/apiclient"
	"github.com/smilemakc/noteflow/internal/auth"
	"github.com/smilemakc/noteflow/internal/config"
	"github.com/smilemakc/noteflow/internal/control"
	"github.com/smilemakc/noteflow/internal/executor"
	"github.com/smilemakc/noteflow/internal/fsm"
	"github.com/smilemakc/noteflow/internal/logger"
	"github.com/smilemakc/noteflow/internal/observerhub"
	"github.com/smilemakc/noteflow/internal/persistence"
	"github.com/smilemakc/noteflow/internal/scheduler"
	"github.com/smilemakc/noteflow/internal/store"
)

// Options configures one Run. RunID identifies the workflow run across
// the Redis blob store, the Postgres transition log, and the WebSocket
// observer's event stream. Config is required; Init seeds the Pipeline
// Store (Init.Template may be nil for a workflow_update-driven start).
type Options struct {
	RunID  string
	Init   store.InitDescriptor
	Config *config.Config
}

// Run holds every component of one workflow run: the three stores, the
// action registry and code executor, the outbound API client, the
// control surface, the observer fan-out, the FSM Core itself, and the
// best-effort persistence and scheduling layers. Engine is exported so
// callers can drive the FSM directly (Start/Resume/Cancel/Transition);
// Run exists to own the things around it.
type Run struct {
	Config *config.Config
	Logger *logger.Logger

	Cells    *store.CellStore
	Context  *store.ContextStore
	Pipeline *store.PipelineStore

	Registry *action.Registry
	Scripts  *action.ScriptStore
	Executor *executor.Client
	API      *apiclient.Client

	Surface   *control.Surface
	Observers *observerhub.ObserverManager
	Engine    *fsm.Engine

	// Blobs and History are nil when Redis/Postgres are not configured
	// or unreachable at construction time: persistence is best-effort,
	// never a precondition for running a workflow (spec_full "New
	// component: Persistence & Checkpointing" is additive, not load-bearing).
	Blobs       *persistence.BlobStore
	History     *persistence.HistoryStore
	Checkpoints *scheduler.CheckpointScheduler

	wsHub  *observerhub.WebSocketHub
	router *gin.Engine
}

// New builds every component for one workflow run. Redis and Postgres
// connectivity failures are logged and skipped rather than returned: a
// run with no persisted-state backing is still a valid, spec-complete
// FSM run (spec §6.3's blob and the transition log are both recoverability
// aids, not correctness dependencies).
func New(opts Options) (*Run, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("engine: Config is required")
	}
	if opts.RunID == "" {
		return nil, fmt.Errorf("engine: RunID is required")
	}
	cfg := opts.Config
	log := logger.New(cfg.Logging)

	cells := store.NewCellStore()
	ctxStore := store.NewContextStore()
	pipeline := store.NewPipelineStore(opts.Init)

	registry := action.NewRegistry(log)
	action.RegisterDefaults(registry)

	execClient := executor.NewClient(cfg.Executor)
	scripts := action.NewScriptStore(cells, ctxStore, pipeline, execClient)

	minter := auth.NewTokenMinter(cfg.Auth)
	api := apiclient.NewClient(cfg.Planner, cfg.Generator, minter)

	surface := control.NewSurface(cfg.Control.DefaultMaxSteps)

	r := &Run{
		Config:   cfg,
		Logger:   log,
		Cells:    cells,
		Context:  ctxStore,
		Pipeline: pipeline,
		Registry: registry,
		Scripts:  scripts,
		Executor: execClient,
		API:      api,
		Surface:  surface,
	}

	observers := observerhub.NewObserverManager(observerhub.WithLogger(log))
	if err := observers.Register(observerhub.NewLoggerObserver(log, nil)); err != nil {
		return nil, fmt.Errorf("engine: registering logger observer: %w", err)
	}

	if cfg.Control.EnableREST {
		r.wsHub = observerhub.NewWebSocketHub(log)
		if err := observers.Register(observerhub.NewWebSocketObserver(r.wsHub)); err != nil {
			return nil, fmt.Errorf("engine: registering websocket observer: %w", err)
		}
	}

	r.setupPersistence()
	if r.History != nil {
		if err := observers.Register(persistence.NewHistoryObserver(r.History, log)); err != nil {
			log.Warn("failed to register history observer", "error", err)
		}
	}
	r.Observers = observers

	r.Engine = fsm.NewEngine(opts.RunID, cells, ctxStore, pipeline, registry, scripts, api, surface, observers, log)

	if r.Blobs != nil && cfg.Scheduler.Enabled {
		r.Checkpoints = scheduler.NewCheckpointScheduler(r.Blobs, log)
	}

	if cfg.Control.EnableREST {
		r.router = control.NewRouter(surface, r.Engine, r.Engine)
	}

	return r, nil
}

// setupPersistence attempts the Redis blob store and Postgres history
// log, logging and leaving them nil on failure rather than failing
// construction.
func (r *Run) setupPersistence() {
	if blobs, err := persistence.NewBlobStore(r.Config.Redis, r.Config.Scheduler.CheckpointPrefix); err != nil {
		r.Logger.Warn("checkpoint blob store unavailable, persistence disabled", "error", err)
	} else {
		r.Blobs = blobs
	}

	if hist, err := persistence.NewHistoryStore(r.Config.Database); err != nil {
		r.Logger.Warn("transition history store unavailable, history logging disabled", "error", err)
	} else if err := hist.EnsureSchema(context.Background()); err != nil {
		r.Logger.Warn("transition history schema setup failed, history logging disabled", "error", err)
		_ = hist.Close()
	} else {
		r.History = hist
	}
}

// Start loads a prior checkpoint if one exists, then starts the FSM and,
// if persistence is wired, begins periodic checkpoint autosave.
func (r *Run) Start(ctx context.Context) error {
	if r.Blobs != nil {
		if blob, ok, err := r.Blobs.Load(ctx, r.Engine.RunID); err != nil {
			r.Logger.Warn("checkpoint load failed, starting fresh", "error", err)
		} else if ok {
			if err := r.Engine.Restore(blob); err != nil {
				r.Logger.Warn("checkpoint restore failed, starting fresh", "error", err)
			} else {
				r.Logger.Info("restored checkpoint", "run_id", r.Engine.RunID, "state", r.Engine.CurrentState())
			}
		}
	}

	if r.Checkpoints != nil {
		r.Checkpoints.Start()
		if err := r.Checkpoints.AddRun(r.Engine.RunID, r.Config.Scheduler.CheckpointCron, r.Engine); err != nil {
			r.Logger.Warn("failed to schedule checkpoint autosave", "error", err)
		}
	}

	return r.Engine.Start(ctx)
}

// ServeControlSurface blocks, serving the REST control surface on
// Config.Control.RESTBindAddr. Only valid when Config.Control.EnableREST
// was set at construction time.
func (r *Run) ServeControlSurface() error {
	if r.router == nil {
		return fmt.Errorf("engine: control surface REST API is not enabled")
	}
	srv := &http.Server{Addr: r.Config.Control.RESTBindAddr, Handler: r.router}
	return srv.ListenAndServe()
}

// Close stops periodic checkpointing, flushes a final checkpoint if
// persistence is wired, and releases the Redis and Postgres connections.
func (r *Run) Close(ctx context.Context) error {
	if r.Checkpoints != nil {
		r.Checkpoints.RemoveRun(r.Engine.RunID)
		r.Checkpoints.Stop()
	}

	if r.Blobs != nil {
		if blob, err := r.Engine.CheckpointJSON(); err != nil {
			r.Logger.Warn("final checkpoint snapshot failed", "error", err)
		} else if err := r.Blobs.Save(ctx, r.Engine.RunID, blob); err != nil {
			r.Logger.Warn("final checkpoint save failed", "error", err)
		}
		if err := r.Blobs.Close(); err != nil {
			r.Logger.Warn("closing blob store", "error", err)
		}
	}

	if r.History != nil {
		if err := r.History.Close(); err != nil {
			r.Logger.Warn("closing history store", "error", err)
		}
	}

	return nil
}
