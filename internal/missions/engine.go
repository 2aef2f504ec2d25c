package missions

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/pathwaylabs/engage/internal/api"
	"github.com/pathwaylabs/engage/internal/domain"
	"github.com/pathwaylabs/engage/internal/logging"
	"github.com/pathwaylabs/engage/internal/session"
)

// ClickArtifact is submitted for missions completed by a click rather
// than free text.
const ClickArtifact = "clicked"

var (
	// ErrUnknownMission means the id matched no mission in the session.
	ErrUnknownMission = errors.New("unknown mission")
	// ErrAlreadyCompleted means the mission is terminal and cannot be resubmitted.
	ErrAlreadyCompleted = errors.New("mission already completed")
	// ErrAlreadySubmitting means a submission for the mission is still in flight.
	ErrAlreadySubmitting = errors.New("mission submission already in flight")
	// ErrAnswerRequired means the mission needs a non-empty answer.
	ErrAnswerRequired = errors.New("answer required")
)

// Engine drives mission completion against the backend and merges the
// results into the session. At most one submission per mission id is in
// flight at a time; a concurrent attempt is rejected, not queued.
type Engine struct {
	store   *session.Store
	backend api.Backend
	req     RequiredSeconds
	log     *logging.Logger

	mu       sync.Mutex
	inFlight map[string]bool
	errs     map[string]string
	closed   bool
}

func NewEngine(store *session.Store, backend api.Backend, req RequiredSeconds, log *logging.Logger) *Engine {
	return &Engine{
		store:    store,
		backend:  backend,
		req:      req,
		log:      log.Sub("missions"),
		inFlight: make(map[string]bool),
		errs:     make(map[string]string),
	}
}

// ViewState derives the rendering state for one mission by id.
func (e *Engine) ViewState(missionID, draft string) (ViewState, bool) {
	m, ok := e.store.Mission(missionID)
	if !ok {
		return ViewState{}, false
	}
	return Derive(m, e.store, draft, e.req), true
}

// MissionError returns the last submission error for a mission, or ""
// when the last attempt succeeded or none was made.
func (e *Engine) MissionError(missionID string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errs[missionID]
}

// SubmitAnswer completes a mission. Click-gated missions ignore the
// answer and submit a click artifact; input missions submit the trimmed
// answer. On success the completion delta is merged into the session and
// a background personalisation refresh is kicked off.
func (e *Engine) SubmitAnswer(ctx context.Context, missionID, answer string) (*api.CompleteMissionResponse, error) {
	m, ok := e.store.Mission(missionID)
	if !ok {
		return nil, ErrUnknownMission
	}

	trimmed := strings.TrimSpace(answer)

	e.mu.Lock()
	if e.inFlight[missionID] {
		e.mu.Unlock()
		return nil, ErrAlreadySubmitting
	}
	if m.Completed() {
		e.mu.Unlock()
		return nil, ErrAlreadyCompleted
	}
	if isInputMission(m) && m.Input.Required && trimmed == "" {
		e.errs[missionID] = ErrAnswerRequired.Error()
		e.mu.Unlock()
		return nil, ErrAnswerRequired
	}
	e.inFlight[missionID] = true
	delete(e.errs, missionID)
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.inFlight, missionID)
		e.mu.Unlock()
	}()

	payload := trimmed
	if m.Type == domain.MissionReadCaseStudy || m.Type == domain.MissionViewProcess {
		payload = ClickArtifact
	}

	var resp *api.CompleteMissionResponse
	err := api.RetryAuth(ctx, e.backend, func() error {
		r, err := e.backend.CompleteMission(ctx, missionID, payload)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		e.mu.Lock()
		e.errs[missionID] = err.Error()
		e.mu.Unlock()
		e.log.Warn().Str("mission", missionID).Err(err).Msg("mission completion failed")
		return nil, err
	}

	var collided bool
	e.store.UpdatePersonalised(func(p *domain.Personalisation) {
		before := len(p.Missions)
		p.Missions = Merge(p.Missions, missionID, payload, Delta{
			PointsAwarded: resp.PointsAwarded,
			PointsTotal:   resp.PointsTotal,
			CallUnlocked:  resp.CallUnlocked,
			NextMission:   resp.NextMission,
		})
		collided = resp.NextMission != nil && len(p.Missions) == before
		p.PointsTotal = resp.PointsTotal
		p.CallUnlocked = resp.CallUnlocked
	})
	if collided {
		e.log.Warn().Str("mission", resp.NextMission.ID).
			Msg("next mission id collides with existing mission, skipped")
	}

	e.log.Info().Str("mission", missionID).
		Int("points_awarded", resp.PointsAwarded).
		Int("points_total", resp.PointsTotal).
		Msg("mission completed")

	go e.refresh()

	return resp, nil
}

// refresh re-fetches the personalised payload after a completion so the
// session converges on the server's view. Errors are logged only; the
// local merge already holds the authoritative delta.
func (e *Engine) refresh() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	p, err := e.backend.GetPersonalised(context.Background())
	if err != nil {
		e.log.Debug().Err(err).Msg("personalisation refresh failed")
		return
	}

	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return
	}
	e.store.SetPersonalised(p)
}

// Close stops background refreshes from touching the session.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}
