// Package session holds the client-side session state container.
//
// The Store is the single source of truth for the personalization flow:
// goal, personalised payload, chat transcript, the single-slot error record
// and the per-region time accumulators. Components read through getters and
// mutate only through named actions; actions are pure state transitions and
// never fail. All fallibility lives in the callers (API client, engine,
// flow), which catch failures and route them into the error record.
package session

import (
	"sync"
	"time"

	"github.com/pathwaylabs/engage/internal/domain"
	"github.com/pathwaylabs/engage/internal/logging"
)

// Persister stores the partial session snapshot durably. Save and Clear
// errors are logged and swallowed so the container keeps working with
// in-memory state only.
type Persister interface {
	Save(snap domain.SessionSnapshot) error
	Load() (*domain.SessionSnapshot, error)
	Clear() error
}

// Store is an injectable session state container. Safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	goal         string
	personalised *domain.Personalisation
	chat         []domain.ChatMessage

	lastError      string
	lastReqType    domain.RequestType
	lastReqPayload string

	caseStudyTime map[string]int
	processTime   map[string]int
	vapiTime      int

	// Ephemeral UI state, never persisted.
	input     string
	recording bool
	focused   bool
	thinking  bool

	persister Persister
	log       *logging.Logger
}

// NewStore creates a session container and rehydrates it from the persister.
// A nil persister keeps the session in memory only.
func NewStore(persister Persister, log *logging.Logger) *Store {
	s := &Store{
		caseStudyTime: make(map[string]int),
		processTime:   make(map[string]int),
		persister:     persister,
		log:           log.Sub("session"),
	}

	if persister != nil {
		snap, err := persister.Load()
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to load session snapshot")
		} else if snap != nil {
			s.hydrateLocked(snap)
			s.log.Info().Str("goal", snap.Goal).Int("chatLen", len(snap.ChatHistory)).Msg("session rehydrated")
		}
	}
	return s
}

// --- Actions ---

// SetGoal records the visitor's business goal.
func (s *Store) SetGoal(goal string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goal = goal
	s.persistLocked()
}

// SetPersonalised replaces the personalisation payload. Nil clears it.
func (s *Store) SetPersonalised(p *domain.Personalisation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.personalised = p.Clone()
	s.persistLocked()
}

// UpdatePersonalised applies fn to the personalisation payload under the
// store's lock, so concurrent read-modify-write cycles cannot lose each
// other's changes. No-op when no payload is set. fn must not retain p.
func (s *Store) UpdatePersonalised(fn func(p *domain.Personalisation)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.personalised == nil {
		return
	}
	fn(s.personalised)
	s.persistLocked()
}

// AddChatMessage appends a transcript entry. Ordering is call order; there
// is no dedup.
func (s *Store) AddChatMessage(msg domain.ChatMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat = append(s.chat, msg)
	s.persistLocked()
}

// SetLastRequest records the payload a retry would resend. Callers pair it
// with SetLastError.
func (s *Store) SetLastRequest(reqType domain.RequestType, payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReqType = reqType
	s.lastReqPayload = payload
	s.persistLocked()
}

// SetLastError records a user-facing failure message.
func (s *Store) SetLastError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = msg
	s.persistLocked()
}

// ClearErrorAndRequest empties the single-slot error record.
func (s *Store) ClearErrorAndRequest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = ""
	s.lastReqType = ""
	s.lastReqPayload = ""
	s.persistLocked()
}

// AddCaseStudyTime adds seconds to a case study's accumulator. Negative
// deltas are clamped to zero; accumulators never decrease.
func (s *Store) AddCaseStudyTime(id string, seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caseStudyTime[id] += seconds
	s.persistLocked()
}

// AddProcessSectionTime adds seconds to a process section's accumulator.
func (s *Store) AddProcessSectionTime(id string, seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processTime[id] += seconds
	s.persistLocked()
}

// AddVapiTime adds seconds to the voice-call accumulator.
func (s *Store) AddVapiTime(seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vapiTime += seconds
	s.persistLocked()
}

// ResetSession clears all session state back to initial defaults. Durable
// preferences are owned by the prefs store and survive.
func (s *Store) ResetSession() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.goal = ""
	s.personalised = nil
	s.chat = nil
	s.lastError = ""
	s.lastReqType = ""
	s.lastReqPayload = ""
	s.caseStudyTime = make(map[string]int)
	s.processTime = make(map[string]int)
	s.vapiTime = 0
	s.input = ""
	s.thinking = false

	if s.persister != nil {
		if err := s.persister.Clear(); err != nil {
			s.log.Warn().Err(err).Msg("failed to clear session snapshot")
		}
	}
}

// HydrateFromSession maps a server-shaped snapshot onto the container.
// Missing fields fall back to defaults; a nil snapshot is a no-op.
func (s *Store) HydrateFromSession(snap *domain.SessionSnapshot) {
	if snap == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hydrateLocked(snap)
	s.persistLocked()
}

// --- Ephemeral UI actions ---

// SetInput records the transient input draft. Not persisted.
func (s *Store) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = text
}

// SetRecording flags speech capture. Not persisted.
func (s *Store) SetRecording(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recording = on
}

// SetFocused flags input focus. Not persisted.
func (s *Store) SetFocused(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focused = on
}

// SetThinking flags an in-flight conversational call. Not persisted.
func (s *Store) SetThinking(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thinking = on
}

// --- Getters ---

// Goal returns the recorded business goal, empty when unset.
func (s *Store) Goal() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.goal
}

// HasGoal reports whether a goal has been recorded.
func (s *Store) HasGoal() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.goal != ""
}

// Personalised returns a copy of the personalisation payload, nil when unset.
func (s *Store) Personalised() *domain.Personalisation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.personalised.Clone()
}

// Missions returns a copy of the current mission list.
func (s *Store) Missions() []domain.Mission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.personalised == nil {
		return nil
	}
	return append([]domain.Mission(nil), s.personalised.Missions...)
}

// Mission returns the mission with the given id, ok=false when absent.
func (s *Store) Mission(id string) (domain.Mission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.personalised == nil {
		return domain.Mission{}, false
	}
	for _, m := range s.personalised.Missions {
		if m.ID == id {
			return m, true
		}
	}
	return domain.Mission{}, false
}

// ChatHistory returns a copy of the transcript.
func (s *Store) ChatHistory() []domain.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ChatMessage(nil), s.chat...)
}

// LastError returns the single-slot error record, nil when clear.
func (s *Store) LastError() *domain.ErrorRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastError == "" {
		return nil
	}
	return &domain.ErrorRecord{
		Message:     s.lastError,
		RequestType: s.lastReqType,
		Payload:     s.lastReqPayload,
	}
}

// CaseStudyTime returns accumulated seconds for one case study.
func (s *Store) CaseStudyTime(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.caseStudyTime[id]
}

// ProcessSectionTime returns accumulated seconds for one process section.
func (s *Store) ProcessSectionTime(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processTime[id]
}

// ProcessSectionTotal returns the sum over all process sections.
func (s *Store) ProcessSectionTotal() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, secs := range s.processTime {
		total += secs
	}
	return total
}

// VapiTime returns accumulated voice-call seconds.
func (s *Store) VapiTime() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vapiTime
}

// Input returns the transient input draft.
func (s *Store) Input() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.input
}

// IsRecording reports the speech-capture flag.
func (s *Store) IsRecording() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recording
}

// IsFocused reports the input focus flag.
func (s *Store) IsFocused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.focused
}

// Thinking reports whether a conversational call is in flight.
func (s *Store) Thinking() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.thinking
}

// Snapshot returns the persisted view of the session.
func (s *Store) Snapshot() domain.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// --- internals ---

func (s *Store) hydrateLocked(snap *domain.SessionSnapshot) {
	s.goal = snap.Goal
	s.personalised = snap.Personalised.Clone()
	s.chat = append([]domain.ChatMessage(nil), snap.ChatHistory...)
	if snap.LastError != nil {
		s.lastError = snap.LastError.Message
		s.lastReqType = snap.LastError.RequestType
		s.lastReqPayload = snap.LastError.Payload
	} else {
		s.lastError = ""
		s.lastReqType = ""
		s.lastReqPayload = ""
	}
	s.caseStudyTime = make(map[string]int, len(snap.CaseStudyTime))
	for id, secs := range snap.CaseStudyTime {
		s.caseStudyTime[id] = secs
	}
	s.processTime = make(map[string]int, len(snap.ProcessSectionTime))
	for id, secs := range snap.ProcessSectionTime {
		s.processTime[id] = secs
	}
	s.vapiTime = snap.VapiTime
}

func (s *Store) snapshotLocked() domain.SessionSnapshot {
	snap := domain.SessionSnapshot{
		Goal:         s.goal,
		Personalised: s.personalised.Clone(),
		ChatHistory:  append([]domain.ChatMessage(nil), s.chat...),
		VapiTime:     s.vapiTime,
	}
	if s.lastError != "" {
		snap.LastError = &domain.ErrorRecord{
			Message:     s.lastError,
			RequestType: s.lastReqType,
			Payload:     s.lastReqPayload,
		}
	}
	if len(s.caseStudyTime) > 0 {
		snap.CaseStudyTime = make(map[string]int, len(s.caseStudyTime))
		for id, secs := range s.caseStudyTime {
			snap.CaseStudyTime[id] = secs
		}
	}
	if len(s.processTime) > 0 {
		snap.ProcessSectionTime = make(map[string]int, len(s.processTime))
		for id, secs := range s.processTime {
			snap.ProcessSectionTime[id] = secs
		}
	}
	return snap
}

func (s *Store) persistLocked() {
	if s.persister == nil {
		return
	}
	if err := s.persister.Save(s.snapshotLocked()); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist session snapshot")
	}
}
