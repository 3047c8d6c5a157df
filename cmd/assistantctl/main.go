package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "assistantctl",
	Short:         "assistantctl - operate the MNP assistant's workflows and knowledge base",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(newWorkflowCmd(), newKnowledgeCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		fmt.Fprintln(os.Stderr)
		os.Exit(1)
	}
}
