// Package chat drives the goal-clarification conversation.
//
// The first message a visitor sends becomes their business goal; the
// second refines it and yields the personalised bundle. After that the
// conversation continues over the free-form chat endpoint.
package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/pathwaylabs/engage/internal/api"
	"github.com/pathwaylabs/engage/internal/domain"
	"github.com/pathwaylabs/engage/internal/logging"
	"github.com/pathwaylabs/engage/internal/session"
)

// ErrEmptyMessage means the message was blank after trimming.
var ErrEmptyMessage = errors.New("message is empty")

// ErrNothingToRetry means no failed request is pending.
var ErrNothingToRetry = errors.New("nothing to retry")

// SendOptions tweaks how a message moves through the flow. Retries set
// both flags: the user's turn is already in the transcript and the
// pending request record must survive another failure unchanged.
type SendOptions struct {
	SkipUserMessage     bool
	PreserveRetryRecord bool
}

// Flow sequences conversation turns between the session and the backend.
type Flow struct {
	store  *session.Store
	client api.Backend
	log    *logging.Logger
}

func NewFlow(store *session.Store, client api.Backend, log *logging.Logger) *Flow {
	return &Flow{store: store, client: client, log: log.Sub("chat")}
}

// Send routes a message through the goal or clarify flow depending on
// whether a goal is already set. The user's turn is appended before the
// network call so the transcript reflects intent even when the call
// fails; failures land in the session's single retry slot.
func (f *Flow) Send(ctx context.Context, message string, opts SendOptions) error {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return ErrEmptyMessage
	}

	if !opts.SkipUserMessage {
		f.store.AddChatMessage(domain.ChatMessage{Role: domain.RoleUser, Message: trimmed})
	}
	f.store.SetThinking(true)
	defer f.store.SetThinking(false)

	if !f.store.HasGoal() {
		return f.sendGoal(ctx, trimmed, opts)
	}
	return f.sendClarify(ctx, trimmed, opts)
}

func (f *Flow) sendGoal(ctx context.Context, goal string, opts SendOptions) error {
	var resp *api.GoalResponse
	err := api.RetryAuth(ctx, f.client, func() error {
		r, err := f.client.SubmitGoal(ctx, goal)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		f.recordFailure(domain.RequestGoal, goal, err, opts)
		return err
	}

	// The assistant's restatement is what the rest of the session treats
	// as the goal, not the visitor's raw text.
	f.store.SetGoal(resp.AssistantMessage.Message)
	f.store.AddChatMessage(domain.ChatMessage{
		Role:    domain.RoleAssistant,
		Message: resp.AssistantMessage.Message,
	})
	f.store.ClearErrorAndRequest()
	f.log.Info().Msg("goal submitted")
	return nil
}

func (f *Flow) sendClarify(ctx context.Context, message string, opts SendOptions) error {
	var resp *api.ClarifyResponse
	err := api.RetryAuth(ctx, f.client, func() error {
		r, err := f.client.ClarifyGoal(ctx, message)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		f.recordFailure(domain.RequestClarify, message, err, opts)
		return err
	}

	f.store.SetPersonalised(&resp.Personalisation)
	f.store.AddChatMessage(domain.ChatMessage{
		Role:    domain.RoleAssistant,
		Message: resp.AssistantMessage.Message,
	})
	f.store.ClearErrorAndRequest()

	// The clarify reply can lag the server's own pipeline; re-fetch so the
	// session converges on the final bundle. Failures keep the inline copy.
	if p, err := f.client.GetPersonalised(ctx); err != nil {
		f.log.Debug().Err(err).Msg("personalisation refresh after clarify failed")
	} else {
		f.store.SetPersonalised(p)
	}

	f.log.Info().Str("status", resp.Personalisation.Status).Msg("goal clarified")
	return nil
}

// Chat sends a free-form message outside the goal flow. The current goal
// rides along as conversation context.
func (f *Flow) Chat(ctx context.Context, message string, opts SendOptions) error {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return ErrEmptyMessage
	}

	if !opts.SkipUserMessage {
		f.store.AddChatMessage(domain.ChatMessage{Role: domain.RoleUser, Message: trimmed})
	}
	f.store.SetThinking(true)
	defer f.store.SetThinking(false)

	var resp *api.ChatResponse
	err := api.RetryAuth(ctx, f.client, func() error {
		r, err := f.client.Chat(ctx, trimmed, f.store.Goal())
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		f.recordFailure(domain.RequestChat, trimmed, err, opts)
		return err
	}

	f.store.AddChatMessage(domain.ChatMessage{
		Role:    domain.RoleAssistant,
		Message: resp.AssistantMessage.Message,
	})
	f.store.ClearErrorAndRequest()
	return nil
}

// Retry resends the pending failed request through the flow that
// produced it. The original user turn stays in the transcript, and a
// second failure keeps the original request record so retry remains
// possible.
func (f *Flow) Retry(ctx context.Context) error {
	rec := f.store.LastError()
	if rec == nil {
		return ErrNothingToRetry
	}

	opts := SendOptions{SkipUserMessage: true, PreserveRetryRecord: true}
	if rec.RequestType == domain.RequestChat {
		return f.Chat(ctx, rec.Payload, opts)
	}
	return f.Send(ctx, rec.Payload, opts)
}

// ClearError dismisses the pending failure without retrying.
func (f *Flow) ClearError() {
	f.store.ClearErrorAndRequest()
}

// Restart wipes the session on both sides and opens a fresh anonymous
// one. A failed server-side reset is logged but does not block the
// local restart.
func (f *Flow) Restart(ctx context.Context) error {
	if err := f.client.ResetSession(ctx); err != nil {
		f.log.Warn().Err(err).Msg("server-side session reset failed")
	}
	f.store.ResetSession()
	return f.client.InitSession(ctx)
}

func (f *Flow) recordFailure(reqType domain.RequestType, payload string, err error, opts SendOptions) {
	if !opts.PreserveRetryRecord {
		f.store.SetLastRequest(reqType, payload)
	}
	f.store.SetLastError(err.Error())
	f.log.Warn().Str("request", string(reqType)).Err(err).Msg("request failed")
}
