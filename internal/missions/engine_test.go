package missions

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathwaylabs/engage/internal/api"
	"github.com/pathwaylabs/engage/internal/domain"
	"github.com/pathwaylabs/engage/internal/logging"
	"github.com/pathwaylabs/engage/internal/session"
)

func silentLog() *logging.Logger {
	return logging.New(io.Discard, "silent")
}

// refreshFails keeps the post-completion refresh inert so tests can
// assert on the merged state without racing the background fetch.
func refreshFails(b *api.MockBackend) {
	b.GetPersonalisedFunc = func(ctx context.Context) (*domain.Personalisation, error) {
		return nil, &api.Error{Status: 500, Message: "down"}
	}
}

func seededStore(t *testing.T, missions ...domain.Mission) *session.Store {
	t.Helper()
	s := session.NewStore(nil, silentLog())
	s.SetPersonalised(&domain.Personalisation{
		Status:      domain.StatusClarified,
		Missions:    missions,
		PointsTotal: 25,
	})
	return s
}

func TestSubmitAnswer_InputMission(t *testing.T) {
	st := seededStore(t, domain.Mission{
		ID:     "m1",
		Type:   domain.MissionAdditionalInput,
		Status: domain.MissionPending,
		Input:  domain.MissionInput{Required: true, Placeholder: "Tell us more"},
	})

	var gotAnswer string
	backend := &api.MockBackend{
		CompleteMissionFunc: func(ctx context.Context, id, answer string) (*api.CompleteMissionResponse, error) {
			gotAnswer = answer
			return &api.CompleteMissionResponse{
				PointsAwarded: 10,
				PointsTotal:   35,
				NextMission:   &domain.Mission{ID: "m2", Title: "Next up", Type: domain.MissionChat},
			}, nil
		},
	}
	refreshFails(backend)
	e := NewEngine(st, backend, testGates(), silentLog())
	defer e.Close()

	resp, err := e.SubmitAnswer(context.Background(), "m1", "  we sell widgets  ")
	require.NoError(t, err)
	assert.Equal(t, 10, resp.PointsAwarded)
	assert.Equal(t, "we sell widgets", gotAnswer)

	m, ok := st.Mission("m1")
	require.True(t, ok)
	assert.True(t, m.Completed())
	assert.Equal(t, "we sell widgets", m.Artifact.Answer)

	next, ok := st.Mission("m2")
	require.True(t, ok)
	assert.Equal(t, domain.MissionPending, next.Status)

	p := st.Personalised()
	assert.Equal(t, 35, p.PointsTotal)
	assert.Empty(t, e.MissionError("m1"))
}

func TestSubmitAnswer_ClickMissionsSendSentinel(t *testing.T) {
	for _, typ := range []domain.MissionType{domain.MissionReadCaseStudy, domain.MissionViewProcess} {
		t.Run(string(typ), func(t *testing.T) {
			st := seededStore(t, domain.Mission{ID: "m1", Type: typ, Status: domain.MissionPending})

			var gotAnswer string
			backend := &api.MockBackend{
				CompleteMissionFunc: func(ctx context.Context, id, answer string) (*api.CompleteMissionResponse, error) {
					gotAnswer = answer
					return &api.CompleteMissionResponse{}, nil
				},
			}
			refreshFails(backend)
			e := NewEngine(st, backend, testGates(), silentLog())
			defer e.Close()

			_, err := e.SubmitAnswer(context.Background(), "m1", "ignored text")
			require.NoError(t, err)
			assert.Equal(t, ClickArtifact, gotAnswer)
		})
	}
}

func TestSubmitAnswer_VapiSendsTrimmedAnswer(t *testing.T) {
	st := seededStore(t, domain.Mission{ID: "m1", Type: domain.MissionVapiWebCall, Status: domain.MissionPending})

	var gotAnswer string
	backend := &api.MockBackend{
		CompleteMissionFunc: func(ctx context.Context, id, answer string) (*api.CompleteMissionResponse, error) {
			gotAnswer = answer
			return &api.CompleteMissionResponse{}, nil
		},
	}
	refreshFails(backend)
	e := NewEngine(st, backend, testGates(), silentLog())
	defer e.Close()

	_, err := e.SubmitAnswer(context.Background(), "m1", " call done ")
	require.NoError(t, err)
	assert.Equal(t, "call done", gotAnswer)
}

func TestSubmitAnswer_Preconditions(t *testing.T) {
	st := seededStore(t,
		domain.Mission{ID: "done", Type: domain.MissionChat, Status: domain.MissionCompleted},
		domain.Mission{
			ID:     "needs-input",
			Type:   domain.MissionAdditionalInput,
			Status: domain.MissionPending,
			Input:  domain.MissionInput{Required: true, Placeholder: "x"},
		},
	)

	var calls atomic.Int32
	backend := &api.MockBackend{
		CompleteMissionFunc: func(ctx context.Context, id, answer string) (*api.CompleteMissionResponse, error) {
			calls.Add(1)
			return &api.CompleteMissionResponse{}, nil
		},
	}
	e := NewEngine(st, backend, testGates(), silentLog())
	defer e.Close()

	_, err := e.SubmitAnswer(context.Background(), "ghost", "x")
	assert.ErrorIs(t, err, ErrUnknownMission)

	_, err = e.SubmitAnswer(context.Background(), "done", "x")
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	_, err = e.SubmitAnswer(context.Background(), "needs-input", "   ")
	assert.ErrorIs(t, err, ErrAnswerRequired)
	assert.Equal(t, ErrAnswerRequired.Error(), e.MissionError("needs-input"))

	assert.Zero(t, calls.Load(), "no network call for rejected submissions")
}

func TestSubmitAnswer_ConcurrentAttemptRejected(t *testing.T) {
	st := seededStore(t, domain.Mission{ID: "m1", Type: domain.MissionChat, Status: domain.MissionPending})

	release := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32
	backend := &api.MockBackend{
		CompleteMissionFunc: func(ctx context.Context, id, answer string) (*api.CompleteMissionResponse, error) {
			calls.Add(1)
			close(started)
			<-release
			return &api.CompleteMissionResponse{}, nil
		},
	}
	refreshFails(backend)
	e := NewEngine(st, backend, testGates(), silentLog())
	defer e.Close()

	done := make(chan error, 1)
	go func() {
		_, err := e.SubmitAnswer(context.Background(), "m1", "first")
		done <- err
	}()
	<-started

	_, err := e.SubmitAnswer(context.Background(), "m1", "second")
	assert.ErrorIs(t, err, ErrAlreadySubmitting)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), calls.Load(), "rejected attempt must not reach the network")
}

func TestSubmitAnswer_ConcurrentCompletionsBothKept(t *testing.T) {
	st := seededStore(t,
		domain.Mission{ID: "m1", Type: domain.MissionChat, Status: domain.MissionPending},
		domain.Mission{ID: "m2", Type: domain.MissionChat, Status: domain.MissionPending},
	)

	// Hold both completions at the backend until each is in flight, then
	// release them together so the merges race.
	var arrived sync.WaitGroup
	arrived.Add(2)
	release := make(chan struct{})
	backend := &api.MockBackend{
		CompleteMissionFunc: func(ctx context.Context, id, answer string) (*api.CompleteMissionResponse, error) {
			arrived.Done()
			<-release
			return &api.CompleteMissionResponse{PointsAwarded: 5, PointsTotal: 30}, nil
		},
	}
	refreshFails(backend)
	e := NewEngine(st, backend, testGates(), silentLog())
	defer e.Close()

	errs := make(chan error, 2)
	for _, id := range []string{"m1", "m2"} {
		go func(id string) {
			_, err := e.SubmitAnswer(context.Background(), id, "x")
			errs <- err
		}(id)
	}
	go func() {
		arrived.Wait()
		close(release)
	}()
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	for _, id := range []string{"m1", "m2"} {
		m, ok := st.Mission(id)
		require.True(t, ok)
		assert.True(t, m.Completed(), "completion for %s must survive the other merge", id)
	}
}

func TestSubmitAnswer_ReauthOnceThenRetry(t *testing.T) {
	st := seededStore(t, domain.Mission{ID: "m1", Type: domain.MissionChat, Status: domain.MissionPending})

	var completes, inits atomic.Int32
	backend := &api.MockBackend{
		InitSessionFunc: func(ctx context.Context) error {
			inits.Add(1)
			return nil
		},
		CompleteMissionFunc: func(ctx context.Context, id, answer string) (*api.CompleteMissionResponse, error) {
			if completes.Add(1) == 1 {
				return nil, &api.AuthError{Reason: "token expired"}
			}
			return &api.CompleteMissionResponse{PointsAwarded: 5}, nil
		},
	}
	refreshFails(backend)
	e := NewEngine(st, backend, testGates(), silentLog())
	defer e.Close()

	resp, err := e.SubmitAnswer(context.Background(), "m1", "hello")
	require.NoError(t, err)
	assert.Equal(t, 5, resp.PointsAwarded)
	assert.Equal(t, int32(2), completes.Load())
	assert.Equal(t, int32(1), inits.Load())
}

func TestSubmitAnswer_FailureRecordedPerMission(t *testing.T) {
	st := seededStore(t,
		domain.Mission{ID: "m1", Type: domain.MissionChat, Status: domain.MissionPending},
		domain.Mission{ID: "m2", Type: domain.MissionChat, Status: domain.MissionPending},
	)

	fail := true
	backend := &api.MockBackend{
		CompleteMissionFunc: func(ctx context.Context, id, answer string) (*api.CompleteMissionResponse, error) {
			if fail {
				return nil, &api.Error{Status: 500, Message: "server exploded"}
			}
			return &api.CompleteMissionResponse{}, nil
		},
	}
	refreshFails(backend)
	e := NewEngine(st, backend, testGates(), silentLog())
	defer e.Close()

	_, err := e.SubmitAnswer(context.Background(), "m1", "x")
	require.Error(t, err)
	assert.Equal(t, "server exploded", e.MissionError("m1"))
	assert.Empty(t, e.MissionError("m2"), "errors do not bleed between missions")

	m, ok := st.Mission("m1")
	require.True(t, ok)
	assert.False(t, m.Completed(), "failed submission leaves the mission pending")

	// A fresh attempt clears the slot before hitting the network.
	fail = false
	_, err = e.SubmitAnswer(context.Background(), "m1", "x")
	require.NoError(t, err)
	assert.Empty(t, e.MissionError("m1"))
}

func TestSubmitAnswer_BackgroundRefreshApplied(t *testing.T) {
	st := seededStore(t, domain.Mission{ID: "m1", Type: domain.MissionChat, Status: domain.MissionPending})

	refreshed := &domain.Personalisation{
		Status:      domain.StatusClarified,
		PointsTotal: 99,
		Missions: []domain.Mission{
			{ID: "m1", Type: domain.MissionChat, Status: domain.MissionCompleted},
		},
	}
	backend := &api.MockBackend{
		CompleteMissionFunc: func(ctx context.Context, id, answer string) (*api.CompleteMissionResponse, error) {
			return &api.CompleteMissionResponse{PointsTotal: 30}, nil
		},
		GetPersonalisedFunc: func(ctx context.Context) (*domain.Personalisation, error) {
			return refreshed, nil
		},
	}
	e := NewEngine(st, backend, testGates(), silentLog())
	defer e.Close()

	_, err := e.SubmitAnswer(context.Background(), "m1", "x")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return st.Personalised().PointsTotal == 99
	}, time.Second, 5*time.Millisecond, "refresh result should land in the session")
}

func TestClose_StopsRefresh(t *testing.T) {
	st := seededStore(t, domain.Mission{ID: "m1", Type: domain.MissionChat, Status: domain.MissionPending})

	fetched := make(chan struct{})
	proceed := make(chan struct{})
	backend := &api.MockBackend{
		CompleteMissionFunc: func(ctx context.Context, id, answer string) (*api.CompleteMissionResponse, error) {
			return &api.CompleteMissionResponse{PointsTotal: 30}, nil
		},
		GetPersonalisedFunc: func(ctx context.Context) (*domain.Personalisation, error) {
			close(fetched)
			<-proceed
			return &domain.Personalisation{PointsTotal: 99}, nil
		},
	}
	e := NewEngine(st, backend, testGates(), silentLog())

	_, err := e.SubmitAnswer(context.Background(), "m1", "x")
	require.NoError(t, err)

	<-fetched
	e.Close()
	close(proceed)

	// Give the goroutine a beat; the closed engine must not apply the fetch.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 30, st.Personalised().PointsTotal)
}
