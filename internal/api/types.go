package api

import "github.com/pathwaylabs/engage/internal/domain"

// AssistantMessage is the backend's conversational reply.
type AssistantMessage struct {
	Message  string `json:"message"`
	Datetime string `json:"datetime,omitempty"`
}

// GoalResponse is returned by the first-turn goal submission.
type GoalResponse struct {
	AssistantMessage AssistantMessage `json:"assistantMessage"`
}

// ClarifyResponse carries the assistant's clarification reply together with
// the freshly computed personalisation bundle.
type ClarifyResponse struct {
	AssistantMessage AssistantMessage       `json:"assistantMessage"`
	Personalisation  domain.Personalisation `json:"personalisation"`
}

// ChatResponse is returned by the free-form chat endpoint.
type ChatResponse struct {
	AssistantMessage AssistantMessage `json:"assistantMessage"`
}

// CompleteMissionRequest is the mission completion payload.
type CompleteMissionRequest struct {
	MissionID string                 `json:"mission_id"`
	Artifact  domain.MissionArtifact `json:"artifact"`
}

// CompleteMissionResponse is the server's completion delta.
type CompleteMissionResponse struct {
	PointsAwarded int             `json:"points_awarded"`
	PointsTotal   int             `json:"points_total"`
	CallUnlocked  bool            `json:"call_unlocked"`
	NextMission   *domain.Mission `json:"next_mission,omitempty"`
}

// sessionTokens is the auth session response. Some deployments nest the
// token pair under "data".
type sessionTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Data         *struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	} `json:"data,omitempty"`
}

// chatRequest is the free-form chat payload.
type chatRequest struct {
	Message string `json:"message"`
	Context string `json:"context,omitempty"`
}

// goalRequest is the first-turn goal payload.
type goalRequest struct {
	Message string `json:"message"`
}
