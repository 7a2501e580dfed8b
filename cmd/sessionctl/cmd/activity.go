package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"go.pilab.hu/sessiond/domain"
	"go.pilab.hu/sessiond/mongodb"
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Inspect per-user activity records",
}

var activityGetCmd = &cobra.Command{
	Use:   "get <user-id>",
	Short: "Print a user's activity record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		repo, _, err := connect(ctx)
		if err != nil {
			return err
		}
		defer mongodb.CloseMongoDB(ctx)

		record, err := repo.GetByUserID(ctx, args[0])
		if err != nil {
			if errors.Is(err, domain.ErrActivityNotFound) {
				return fmt.Errorf("no activity record for user %q", args[0])
			}
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(record); err != nil {
			return err
		}

		now := time.Now()
		fmt.Printf("fresh: %t (deadline %s)\n", record.Fresh(now), record.Deadline().Format(time.RFC3339))
		return nil
	},
}

func init() {
	activityCmd.AddCommand(activityGetCmd)
	rootCmd.AddCommand(activityCmd)
}
