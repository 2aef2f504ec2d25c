package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pathwaylabs/engage/internal/missions"
	"github.com/spf13/cobra"
)

func newMissionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "missions",
		Short: "List and complete missions",
	}

	cmd.AddCommand(newMissionsListCmd())
	cmd.AddCommand(newMissionsCompleteCmd())
	return cmd
}

func newMissionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show missions with progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			list := a.session.Missions()
			if len(list) == 0 {
				fmt.Println("No missions yet. Set a goal first: engage chat send <your goal>")
				return nil
			}

			for _, m := range list {
				vs, _ := a.engine.ViewState(m.ID, "")
				line := fmt.Sprintf("%-12s %-24s %s (%d pts)", vs.VisualStatus, m.ID, m.Title, m.Points)
				if vs.RequiredSeconds > 0 && vs.VisualStatus != missions.VisualCompleted {
					line += fmt.Sprintf("  [%ds/%ds]", vs.TimeSpent, vs.RequiredSeconds)
				}
				if msg := a.engine.MissionError(m.ID); msg != "" {
					line += "  !" + msg
				}
				fmt.Println(line)
			}

			if p := a.session.Personalised(); p != nil {
				fmt.Printf("\ntotal: %d pts", p.PointsTotal)
				if p.CallUnlocked {
					fmt.Print("  (call unlocked)")
				}
				fmt.Println()
			}
			return nil
		},
	}
}

func newMissionsCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <mission-id> [answer]",
		Short: "Submit a mission",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			answer := strings.Join(args[1:], " ")
			resp, err := a.engine.SubmitAnswer(ctx, args[0], answer)
			if err != nil {
				if errors.Is(err, missions.ErrAnswerRequired) {
					return fmt.Errorf("mission %s needs an answer: engage missions complete %s <answer>", args[0], args[0])
				}
				return err
			}

			fmt.Printf("+%d pts (total %d)\n", resp.PointsAwarded, resp.PointsTotal)
			if resp.CallUnlocked {
				fmt.Println("call unlocked")
			}
			if resp.NextMission != nil {
				fmt.Printf("next: %s (%s)\n", resp.NextMission.ID, resp.NextMission.Title)
			}
			return nil
		},
	}
}
