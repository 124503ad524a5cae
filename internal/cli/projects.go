package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <name> <repo-url>",
	Short: "Register a repository as a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := api.CreateProject(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Created project %s (%s)\n", project.Name, project.RepoURL)
		fmt.Printf("Run 'repolens index %s' to index it.\n", project.Name)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		projects, err := api.ListProjects(cmd.Context())
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			fmt.Println("No projects yet. Add one with 'repolens add'.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tREPOSITORY")
		for _, p := range projects {
			fmt.Fprintf(w, "%s\t%s\n", p.Name, p.RepoURL)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
}
