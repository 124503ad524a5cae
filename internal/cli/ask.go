package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var sourceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C6C6C")).Italic(true)

var askCmd = &cobra.Command{
	Use:   "ask <project> <question>",
	Short: "Ask a question about an indexed project",
	Long: `Ask a question about a project's code, history or meetings. The answer
is synthesized from the most relevant indexed chunks.

Examples:
  repolens ask demo "How does the auth middleware work?"
  repolens ask demo "What did we decide about the token rotation?"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		answer, err := api.Chat(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		fmt.Println(answer.Text)

		if len(answer.Sources) > 0 {
			fmt.Println()
			fmt.Println(sourceStyle.Render("Sources:"))
			for _, s := range answer.Sources {
				label := s.Path
				if s.Source == "meeting" {
					label = "meeting " + s.Path
				}
				fmt.Println(sourceStyle.Render("  • " + label))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
