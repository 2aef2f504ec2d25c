package cli

import (
	"fmt"
	"os"

	"github.com/pathwaylabs/engage/internal/config"
	"github.com/pathwaylabs/engage/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show Engage status and session summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("Engage %s (commit %s)\n\n", version.Version, version.Commit)

			// Show paths
			fmt.Printf("Config:   %s\n", paths.Config)
			fmt.Printf("Database: %s\n", paths.Database)
			fmt.Printf("Logs:     %s\n", paths.Logs)
			fmt.Println()

			// Load config
			cfg, err := config.Load(paths.Config)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Println("Config:   not found (using defaults)")
				} else {
					fmt.Printf("Config:   error loading: %v\n", err)
				}
				return nil
			}

			fmt.Printf("Backend:  %s (timeout %ds)\n", cfg.Backend.BaseURL, cfg.Backend.TimeoutSeconds)
			if cfg.Track.FeedURL != "" {
				fmt.Printf("Feed:     %s\n", cfg.Track.FeedURL)
			} else {
				fmt.Println("Feed:     (not configured)")
			}
			fmt.Printf("Gates:    caseStudy=%ds process=%ds vapi=%ds\n",
				cfg.Missions.RequiredSeconds.ReadCaseStudy,
				cfg.Missions.RequiredSeconds.ViewProcess,
				cfg.Missions.RequiredSeconds.VapiCall)

			// Session summary
			a, err := newApp()
			if err == nil {
				defer a.close()
				if goal := a.session.Goal(); goal != "" {
					fmt.Printf("Goal:     %s\n", goal)
				} else {
					fmt.Println("Goal:     (not set)")
				}
				if p := a.session.Personalised(); p != nil {
					fmt.Printf("Session:  status=%s points=%d missions=%d\n",
						p.Status, p.PointsTotal, len(p.Missions))
				}
				fmt.Printf("Chat:     %d turns\n", len(a.session.ChatHistory()))
				if rec := a.session.LastError(); rec != nil {
					fmt.Printf("Pending:  failed %s request: %s\n", rec.RequestType, rec.Message)
				}
			}

			// Validation
			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Printf("\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Printf("  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}
