package api

import (
	"context"

	"github.com/pathwaylabs/engage/internal/domain"
)

// Backend is the surface the chat flow and mission engine depend on.
// *Client is the real implementation; MockBackend serves tests.
type Backend interface {
	InitSession(ctx context.Context) error
	ResetSession(ctx context.Context) error
	SubmitGoal(ctx context.Context, goal string) (*GoalResponse, error)
	ClarifyGoal(ctx context.Context, message string) (*ClarifyResponse, error)
	GetPersonalised(ctx context.Context) (*domain.Personalisation, error)
	CompleteMission(ctx context.Context, missionID, answer string) (*CompleteMissionResponse, error)
	Chat(ctx context.Context, message, chatContext string) (*ChatResponse, error)
}

var _ Backend = (*Client)(nil)

// MockBackend is a test double for Backend.
type MockBackend struct {
	InitSessionFunc     func(ctx context.Context) error
	ResetSessionFunc    func(ctx context.Context) error
	SubmitGoalFunc      func(ctx context.Context, goal string) (*GoalResponse, error)
	ClarifyGoalFunc     func(ctx context.Context, message string) (*ClarifyResponse, error)
	GetPersonalisedFunc func(ctx context.Context) (*domain.Personalisation, error)
	CompleteMissionFunc func(ctx context.Context, missionID, answer string) (*CompleteMissionResponse, error)
	ChatFunc            func(ctx context.Context, message, chatContext string) (*ChatResponse, error)
}

func (m *MockBackend) InitSession(ctx context.Context) error {
	if m.InitSessionFunc != nil {
		return m.InitSessionFunc(ctx)
	}
	return nil
}

func (m *MockBackend) ResetSession(ctx context.Context) error {
	if m.ResetSessionFunc != nil {
		return m.ResetSessionFunc(ctx)
	}
	return nil
}

func (m *MockBackend) SubmitGoal(ctx context.Context, goal string) (*GoalResponse, error) {
	if m.SubmitGoalFunc != nil {
		return m.SubmitGoalFunc(ctx, goal)
	}
	return &GoalResponse{AssistantMessage: AssistantMessage{Message: "mock goal reply"}}, nil
}

func (m *MockBackend) ClarifyGoal(ctx context.Context, message string) (*ClarifyResponse, error) {
	if m.ClarifyGoalFunc != nil {
		return m.ClarifyGoalFunc(ctx, message)
	}
	return &ClarifyResponse{AssistantMessage: AssistantMessage{Message: "mock clarify reply"}}, nil
}

func (m *MockBackend) GetPersonalised(ctx context.Context) (*domain.Personalisation, error) {
	if m.GetPersonalisedFunc != nil {
		return m.GetPersonalisedFunc(ctx)
	}
	return &domain.Personalisation{Status: domain.StatusClarified}, nil
}

func (m *MockBackend) CompleteMission(ctx context.Context, missionID, answer string) (*CompleteMissionResponse, error) {
	if m.CompleteMissionFunc != nil {
		return m.CompleteMissionFunc(ctx, missionID, answer)
	}
	return &CompleteMissionResponse{}, nil
}

func (m *MockBackend) Chat(ctx context.Context, message, chatContext string) (*ChatResponse, error) {
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, message, chatContext)
	}
	return &ChatResponse{AssistantMessage: AssistantMessage{Message: "mock chat reply"}}, nil
}
