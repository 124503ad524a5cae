package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var noProgress bool

var indexCmd = &cobra.Command{
	Use:   "index <project>",
	Short: "Index a project's repository",
	Long: `Index clones the project's repository on the server and extracts
files, commit history and embeddings. The command shows live progress
and waits for the job to finish; pass --no-wait to return immediately.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID := args[0]
		jobID, err := api.Index(cmd.Context(), projectID)
		if err != nil {
			return err
		}

		if noProgress {
			fmt.Printf("Job %s started.\nUse 'repolens jobs %s' to check status.\n", jobID, jobID)
			return nil
		}

		return RunJobProgress(api, projectID, jobID)
	},
}

func init() {
	indexCmd.Flags().BoolVar(&noProgress, "no-wait", false, "start the job and return immediately")
	rootCmd.AddCommand(indexCmd)
}
