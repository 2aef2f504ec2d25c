package cli

import (
	"time"

	"github.com/pathwaylabs/engage/internal/api"
	"github.com/pathwaylabs/engage/internal/chat"
	"github.com/pathwaylabs/engage/internal/config"
	"github.com/pathwaylabs/engage/internal/missions"
	"github.com/pathwaylabs/engage/internal/session"
	"github.com/pathwaylabs/engage/internal/store"
	"github.com/pathwaylabs/engage/internal/track"
)

// app wires the config, durable store, API client and the session
// components a command needs. A broken durable store degrades to
// memory-only state rather than failing the command.
type app struct {
	cfg     config.Config
	db      *store.DB
	session *session.Store
	client  *api.Client
	flow    *chat.Flow
	engine  *missions.Engine
	tracker *track.Tracker
}

func newApp() (*app, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	var tokens api.TokenStore
	var persister session.Persister
	db, err := store.Open(paths.Database, log)
	if err != nil {
		log.Warn().Err(err).Str("path", paths.Database).
			Msg("durable store unavailable, continuing in memory")
		tokens = &api.MemoryTokenStore{}
	} else {
		a.db = db
		prefs := store.NewPrefsStore(db)
		tokens = prefs
		persister = store.NewSnapshotStore(db)
	}

	a.client = api.NewClient(cfg.Backend.BaseURL, tokens,
		time.Duration(cfg.Backend.TimeoutSeconds)*time.Second, log)
	a.session = session.NewStore(persister, log)
	a.flow = chat.NewFlow(a.session, a.client, log)
	a.engine = missions.NewEngine(a.session, a.client, missions.RequiredSeconds{
		ReadCaseStudy: cfg.Missions.RequiredSeconds.ReadCaseStudy,
		ViewProcess:   cfg.Missions.RequiredSeconds.ViewProcess,
		VapiCall:      cfg.Missions.RequiredSeconds.VapiCall,
	}, log)
	a.tracker = track.NewTracker(a.session, log)
	return a, nil
}

func (a *app) close() {
	a.tracker.Close()
	a.engine.Close()
	if a.db != nil {
		a.db.Close()
	}
}
