package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs <job-id>",
	Short: "Show the status of a background job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := api.JobStatus(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Job:      %s\n", job.ID)
		fmt.Printf("Type:     %s\n", job.Type)
		fmt.Printf("Status:   %s\n", job.Status)
		fmt.Printf("Enqueued: %s\n", job.EnqueuedAt.Format("2006-01-02 15:04:05"))
		if job.CompletedAt != nil {
			fmt.Printf("Finished: %s\n", job.CompletedAt.Format("2006-01-02 15:04:05"))
		}
		if job.Error != "" {
			fmt.Printf("Error:    %s\n", job.Error)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}
