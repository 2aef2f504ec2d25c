package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pathwaylabs/engage/internal/chat"
	"github.com/pathwaylabs/engage/internal/domain"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the personalization assistant",
	}

	cmd.AddCommand(newChatSendCmd())
	cmd.AddCommand(newChatRetryCmd())
	cmd.AddCommand(newChatHistoryCmd())
	return cmd
}

func newChatSendCmd() *cobra.Command {
	var freeform bool

	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Send a message; the first message becomes your goal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if freeform {
				err = a.flow.Chat(ctx, message, chat.SendOptions{})
			} else {
				err = a.flow.Send(ctx, message, chat.SendOptions{})
			}
			if err != nil {
				if rec := a.session.LastError(); rec != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "request failed: %s (retry with `engage chat retry`)\n", rec.Message)
				}
				return err
			}

			printLastReply(cmd, a)
			return nil
		},
	}

	cmd.Flags().BoolVar(&freeform, "freeform", false, "send outside the goal flow")
	return cmd
}

func newChatRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Resend the last failed message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := a.flow.Retry(ctx); err != nil {
				return err
			}
			printLastReply(cmd, a)
			return nil
		},
	}
}

func newChatHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Print the conversation so far",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			for _, msg := range a.session.ChatHistory() {
				fmt.Printf("[%s] %s\n", msg.Role, msg.Message)
			}
			if rec := a.session.LastError(); rec != nil {
				fmt.Printf("\npending failure (%s): %s\n", rec.RequestType, rec.Message)
			}
			return nil
		},
	}
}

func printLastReply(cmd *cobra.Command, a *app) {
	history := a.session.ChatHistory()
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == domain.RoleAssistant {
			fmt.Println(history[i].Message)
			break
		}
	}
	if p := a.session.Personalised(); p != nil && p.Status == domain.StatusClarified {
		fmt.Fprintf(cmd.ErrOrStderr(), "\n[goal=%q points=%d missions=%d]\n",
			a.session.Goal(), p.PointsTotal, len(p.Missions))
	}
}
