package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"go.pilab.hu/sessiond/mongodb"
	"go.pilab.hu/sessiond/services"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one inactivity sweep immediately",
	Long:  `Runs a single reconciliation cycle: flips records past the inactivity threshold and repairs the expiry bookkeeping, exactly as the scheduled sweep does.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		repo, _, err := connect(ctx)
		if err != nil {
			return err
		}
		defer mongodb.CloseMongoDB(ctx)

		reconciler := services.NewReconciler(repo, 0, 0)
		if err := reconciler.RunOnce(ctx); err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}

		active, err := repo.CountActive(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("sweep complete, %d users currently active\n", active)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
