package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathwaylabs/engage/internal/domain"
	"github.com/pathwaylabs/engage/internal/logging"
	"github.com/pathwaylabs/engage/internal/store"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

func memStore() *Store {
	return NewStore(nil, silentLog())
}

func sqliteStore(t *testing.T) (*Store, *store.SnapshotStore) {
	t.Helper()
	db, err := store.Open(":memory:", silentLog())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	snaps := store.NewSnapshotStore(db)
	return NewStore(snaps, silentLog()), snaps
}

func TestAddCaseStudyTime_SumPerKey(t *testing.T) {
	s := memStore()

	s.AddCaseStudyTime("cs1", 5)
	s.AddCaseStudyTime("cs2", 3)
	s.AddCaseStudyTime("cs1", 7)
	s.AddCaseStudyTime("cs2", 1)
	s.AddCaseStudyTime("cs1", 0)

	assert.Equal(t, 12, s.CaseStudyTime("cs1"))
	assert.Equal(t, 4, s.CaseStudyTime("cs2"))
	assert.Equal(t, 0, s.CaseStudyTime("unknown"))
}

func TestAddCaseStudyTime_NegativeClamped(t *testing.T) {
	s := memStore()

	s.AddCaseStudyTime("cs1", 10)
	s.AddCaseStudyTime("cs1", -5)

	assert.Equal(t, 10, s.CaseStudyTime("cs1"))
}

func TestAddVapiTime_Monotone(t *testing.T) {
	s := memStore()

	s.AddVapiTime(20)
	s.AddVapiTime(-3)
	s.AddVapiTime(5)

	assert.Equal(t, 25, s.VapiTime())
}

func TestProcessSectionTotal(t *testing.T) {
	s := memStore()

	s.AddProcessSectionTime("step-1", 10)
	s.AddProcessSectionTime("step-2", 15)
	s.AddProcessSectionTime("step-1", 5)

	assert.Equal(t, 15, s.ProcessSectionTime("step-1"))
	assert.Equal(t, 30, s.ProcessSectionTotal())
}

func TestChatHistory_AppendOrder(t *testing.T) {
	s := memStore()

	s.AddChatMessage(domain.ChatMessage{Role: domain.RoleUser, Message: "first"})
	s.AddChatMessage(domain.ChatMessage{Role: domain.RoleAssistant, Message: "second"})

	history := s.ChatHistory()
	require.Len(t, history, 2)
	assert.Equal(t, "first", history[0].Message)
	assert.Equal(t, "second", history[1].Message)
	assert.False(t, history[0].Timestamp.IsZero())
}

func TestErrorRecord_SingleSlot(t *testing.T) {
	s := memStore()

	assert.Nil(t, s.LastError())

	s.SetLastRequest(domain.RequestGoal, "Grow sales")
	s.SetLastError("X")

	rec := s.LastError()
	require.NotNil(t, rec)
	assert.Equal(t, "X", rec.Message)
	assert.Equal(t, domain.RequestGoal, rec.RequestType)
	assert.Equal(t, "Grow sales", rec.Payload)

	s.ClearErrorAndRequest()
	assert.Nil(t, s.LastError())
}

func TestResetSession(t *testing.T) {
	s := memStore()

	s.SetGoal("Grow bookings")
	s.SetPersonalised(&domain.Personalisation{Status: domain.StatusClarified})
	s.AddChatMessage(domain.ChatMessage{Role: domain.RoleUser, Message: "hi"})
	s.AddCaseStudyTime("cs1", 30)
	s.AddVapiTime(10)
	s.SetLastRequest(domain.RequestChat, "hi")
	s.SetLastError("boom")

	s.ResetSession()

	assert.False(t, s.HasGoal())
	assert.Empty(t, s.ChatHistory())
	assert.Nil(t, s.Personalised())
	assert.Nil(t, s.LastError())
	assert.Equal(t, 0, s.CaseStudyTime("cs1"))
	assert.Equal(t, 0, s.VapiTime())
}

func TestHydrateFromSession_Defaults(t *testing.T) {
	s := memStore()

	s.HydrateFromSession(nil)
	assert.False(t, s.HasGoal())

	s.HydrateFromSession(&domain.SessionSnapshot{Goal: "Grow"})
	assert.True(t, s.HasGoal())
	assert.Empty(t, s.ChatHistory())
	assert.Nil(t, s.Personalised())
	assert.Equal(t, 0, s.VapiTime())
}

func TestPersistence_RoundTrip(t *testing.T) {
	s, snaps := sqliteStore(t)

	s.SetGoal("Grow my bookings")
	s.AddChatMessage(domain.ChatMessage{Role: domain.RoleUser, Message: "Grow my bookings"})
	s.AddCaseStudyTime("cs1", 12)
	s.AddVapiTime(7)

	// A second container over the same persister sees the same session.
	restored := NewStore(snaps, silentLog())
	assert.Equal(t, "Grow my bookings", restored.Goal())
	require.Len(t, restored.ChatHistory(), 1)
	assert.Equal(t, 12, restored.CaseStudyTime("cs1"))
	assert.Equal(t, 7, restored.VapiTime())
}

func TestPersistence_ResetClearsSnapshot(t *testing.T) {
	s, snaps := sqliteStore(t)

	s.SetGoal("Grow")
	s.ResetSession()

	restored := NewStore(snaps, silentLog())
	assert.False(t, restored.HasGoal())
}

func TestEphemeralFields_NotPersisted(t *testing.T) {
	s, snaps := sqliteStore(t)

	s.SetInput("draft text")
	s.SetThinking(true)
	s.SetGoal("Grow") // forces a persist

	restored := NewStore(snaps, silentLog())
	assert.Empty(t, restored.Input())
	assert.False(t, restored.Thinking())
}

// failingPersister always errors; the container must keep working.
type failingPersister struct{}

func (failingPersister) Save(domain.SessionSnapshot) error    { return errors.New("disk full") }
func (failingPersister) Load() (*domain.SessionSnapshot, error) { return nil, errors.New("corrupt") }
func (failingPersister) Clear() error                          { return errors.New("disk full") }

func TestStorageFailure_NeverFatal(t *testing.T) {
	s := NewStore(failingPersister{}, silentLog())

	s.SetGoal("Grow")
	s.AddCaseStudyTime("cs1", 5)
	s.ResetSession()

	assert.False(t, s.HasGoal())
}

func TestMissionLookup(t *testing.T) {
	s := memStore()
	s.SetPersonalised(&domain.Personalisation{
		Missions: []domain.Mission{
			{ID: "m1", Status: domain.MissionPending},
			{ID: "m2", Status: domain.MissionCompleted},
		},
	})

	m, ok := s.Mission("m2")
	assert.True(t, ok)
	assert.Equal(t, domain.MissionCompleted, m.Status)

	_, ok = s.Mission("nope")
	assert.False(t, ok)

	assert.Len(t, s.Missions(), 2)
}

func TestUpdatePersonalised_SerialisesConcurrentWrites(t *testing.T) {
	s := memStore()
	s.SetPersonalised(&domain.Personalisation{Status: domain.StatusClarified})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.UpdatePersonalised(func(p *domain.Personalisation) {
				p.PointsTotal++
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.Personalised().PointsTotal)
}

func TestUpdatePersonalised_NoPayloadNoop(t *testing.T) {
	s := memStore()

	called := false
	s.UpdatePersonalised(func(p *domain.Personalisation) { called = true })

	assert.False(t, called)
	assert.Nil(t, s.Personalised())
}

func TestPersonalised_CopyIsolation(t *testing.T) {
	s := memStore()
	s.SetPersonalised(&domain.Personalisation{
		Missions: []domain.Mission{{ID: "m1", Status: domain.MissionPending}},
	})

	p := s.Personalised()
	p.Missions[0].Status = domain.MissionCompleted

	m, _ := s.Mission("m1")
	assert.Equal(t, domain.MissionPending, m.Status, "getter copies must not alias store state")
}
