package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent readiness and index statistics",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}
	if agentService == nil {
		return errNotConfigured
	}

	status := agentService.Status(cmd.Context())

	if statusJSON {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("State:      %s\n", status.State)
	cmd.Printf("Documents:  %d (%d embedded)\n", status.DocumentCount, status.EmbeddedCount)
	cmd.Printf("Model:      %s\n", status.Model)
	if status.LastSync.IsZero() {
		cmd.Println("Last sync:  never")
	} else {
		cmd.Printf("Last sync:  %s\n", status.LastSync.Format("2006-01-02 15:04:05 MST"))
	}
	return nil
}
