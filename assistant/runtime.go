package assistant

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/DachengChen/askSQL/ai"
	"github.com/DachengChen/askSQL/applog"
	"github.com/DachengChen/askSQL/config"
	"github.com/DachengChen/askSQL/db"
	"github.com/DachengChen/askSQL/querylog"
)

// Runtime is everything a surface (TUI, CLI, HTTP) needs to serve
// questions against one database.
type Runtime struct {
	Config   *config.AppConfig
	DB       *db.DB
	Schemas  *db.SchemaCache
	Pipeline *Pipeline
	Sessions *Manager
	// Log is nil when the query log is disabled or unavailable.
	Log *querylog.Store

	transcript io.Closer
}

// Open connects to the database, loads its schema and builds the
// provider gateway.
func Open(ctx context.Context, cfg *config.AppConfig, conn config.Connection) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	applog.Event("connect", "connecting", "target", conn.Display(), "driver", conn.Driver)
	database, err := db.Open(ctx, conn)
	if err != nil {
		applog.Error("connect failed", "target", conn.Display(), "err", err)
		return nil, fmt.Errorf("connect %s: %w", conn.Display(), err)
	}
	rt := &Runtime{Config: cfg, DB: database}

	var transcript io.Writer
	if f, err := ai.OpenTranscript(); err != nil {
		applog.Warn("ai transcript unavailable", "err", err)
	} else {
		transcript = f
		rt.transcript = f
	}

	provider, err := ai.NewGateway(cfg.AI, transcript)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.Schemas = db.NewSchemaCache(database)
	schema, err := rt.Schemas.Schema(ctx)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("load schema: %w", err)
	}
	applog.Event("connect", "connected", "target", conn.Display(), "tables", len(schema.Tables))

	var recorder TurnRecorder
	if cfg.QueryLog.Enabled {
		if path, err := cfg.QueryLogPath(); err != nil {
			applog.Warn("query log disabled", "err", err)
		} else if store, err := querylog.Open(ctx, path); err != nil {
			applog.Warn("query log disabled", "path", path, "err", err)
		} else {
			rt.Log = store
			recorder = store
		}
	}

	rt.Pipeline = NewPipeline(PipelineOptions{
		Provider:    provider,
		Schemas:     rt.Schemas,
		Executor:    db.NewExecutor(database),
		Dialect:     database.Dialect(),
		Config:      cfg.Pipeline,
		CallTimeout: ai.CallTimeout(cfg.AI),
		Recorder:    recorder,
	})
	rt.Sessions = NewManager(time.Duration(cfg.Server.SessionTTLMinutes) * time.Minute)
	return rt, nil
}

// Close releases the database, the query log and the transcript.
func (r *Runtime) Close() {
	if r.Sessions != nil {
		r.Sessions.Close()
	}
	if r.Log != nil {
		r.Log.Close()
	}
	if r.DB != nil {
		r.DB.Close()
	}
	if r.transcript != nil {
		r.transcript.Close()
	}
}
