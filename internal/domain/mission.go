package domain

// MissionType classifies how a mission is completed.
type MissionType string

const (
	MissionAdditionalInput MissionType = "ADDITIONAL_INPUT"
	MissionChat            MissionType = "CHAT"
	MissionReadCaseStudy   MissionType = "READ_CASE_STUDY"
	MissionViewProcess     MissionType = "VIEW_PROCESS"
	MissionVapiWebCall     MissionType = "VAPI_WEB_CALL"
	MissionGoalInput       MissionType = "GOAL_INPUT"
)

// Mission status values. "in-progress" is a rendering decision derived from
// drafts and timers, never a stored status.
type MissionStatus string

const (
	MissionPending   MissionStatus = "pending"
	MissionCompleted MissionStatus = "completed"
)

// NoTargetCaseStudy is the sentinel the backend uses when a read-case-study
// mission has no concrete target.
const NoTargetCaseStudy = "N/A"

// MissionInput describes the free-text input a mission expects, if any.
type MissionInput struct {
	Required    bool   `json:"required"`
	Type        string `json:"type,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
}

// MissionOptions carries type-specific settings.
type MissionOptions struct {
	TargetCaseStudyID string `json:"targetCaseStudyId,omitempty"`
}

// MissionArtifact is the answer recorded when a mission completes.
type MissionArtifact struct {
	Answer string `json:"answer"`
}

// Mission is a single gamified task with a point value and a type-specific
// completion gate. Missions are created server-side; the client only flips
// Status and fills Artifact.
type Mission struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Points      int             `json:"points"`
	Status      MissionStatus   `json:"status"`
	Type        MissionType     `json:"missionType"`
	Input       MissionInput    `json:"input"`
	Options     MissionOptions  `json:"options"`
	Artifact    MissionArtifact `json:"artifact"`
}

// Completed reports whether the mission has reached its terminal state.
func (m Mission) Completed() bool {
	return m.Status == MissionCompleted
}
