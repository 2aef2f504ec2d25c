package domain

// Personalisation status values, as reported by the backend.
const (
	StatusInitial   = "INITIAL"
	StatusGoalSet   = "GOAL_SET"
	StatusClarified = "CLARIFIED"
)

// RequestType identifies which flow produced a retryable failure.
type RequestType string

const (
	RequestGoal    RequestType = "goal"
	RequestClarify RequestType = "clarify"
	RequestChat    RequestType = "chat"
)

// ErrorRecord is the single-slot pending-failure record. At most one
// retryable failure exists at a time; a retry resends Payload through the
// flow named by RequestType.
type ErrorRecord struct {
	Message     string      `json:"message"`
	RequestType RequestType `json:"requestType"`
	Payload     string      `json:"payload"`
}

// Hero is the personalised above-the-fold copy.
type Hero struct {
	Headline    string `json:"headline"`
	Subheadline string `json:"subheadline,omitempty"`
	CTA         string `json:"cta,omitempty"`
}

// CaseStudy is a recommended case study keyed to the visitor's goal.
type CaseStudy struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
	URL     string `json:"url,omitempty"`
}

// ProcessStep is one step of the personalised process walkthrough.
type ProcessStep struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Personalisation is the server-computed bundle keyed to a clarified goal:
// hero copy, recommended case studies, process steps, missions, points and
// the call-unlock flag.
type Personalisation struct {
	Status       string        `json:"status"`
	Hero         Hero          `json:"hero"`
	Why          string        `json:"why,omitempty"`
	CaseStudies  []CaseStudy   `json:"recommendedCaseStudies,omitempty"`
	ProcessSteps []ProcessStep `json:"processSteps,omitempty"`
	Missions     []Mission     `json:"missions,omitempty"`
	PointsTotal  int           `json:"points_total"`
	CallUnlocked bool          `json:"call_unlocked"`
}

// Clone returns a deep copy. The session container hands out clones so
// callers never share slices with the stored payload.
func (p *Personalisation) Clone() *Personalisation {
	if p == nil {
		return nil
	}
	cp := *p
	cp.CaseStudies = append([]CaseStudy(nil), p.CaseStudies...)
	cp.ProcessSteps = append([]ProcessStep(nil), p.ProcessSteps...)
	cp.Missions = append([]Mission(nil), p.Missions...)
	return &cp
}

// SessionSnapshot is the partial session view that survives restarts.
// Ephemeral UI fields (input draft, focus/recording flags) are excluded.
type SessionSnapshot struct {
	Goal               string           `json:"goal,omitempty"`
	Personalised       *Personalisation `json:"personalised,omitempty"`
	ChatHistory        []ChatMessage    `json:"chatHistory,omitempty"`
	LastError          *ErrorRecord     `json:"lastError,omitempty"`
	CaseStudyTime      map[string]int   `json:"caseStudyTimeSpent,omitempty"`
	ProcessSectionTime map[string]int   `json:"processSectionTimeSpent,omitempty"`
	VapiTime           int              `json:"vapiTimeSpent,omitempty"`
}
