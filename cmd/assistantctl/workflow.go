package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"mnp-assistant-be/internal/bootstrap"
	"mnp-assistant-be/internal/pkg/logger"
	"mnp-assistant-be/pkg/lock"
	"mnp-assistant-be/pkg/workflow"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const maxWalkSteps = 100

func newWorkflowCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Inspect workflow definitions",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "definition directory (default: embedded definitions)")

	lint := &cobra.Command{
		Use:   "lint",
		Short: "Validate every definition and print its default path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(cmd.OutOrStdout(), dir)
		},
	}

	var (
		fromCarrier string
		toCarrier   string
		answers     map[string]string
	)
	walk := &cobra.Command{
		Use:   "walk <workflow-id>",
		Short: "Drive a workflow end to end against an in-memory store",
		Long: "Walks the workflow with the real engine. Question steps take the answer given with\n" +
			"--answer step=value, or their first option. Input steps need an --answer.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWalk(cmd.Context(), cmd.OutOrStdout(), dir, args[0], fromCarrier, toCarrier, answers)
		},
	}
	walk.Flags().StringVar(&fromCarrier, "from", "docomo", "current carrier")
	walk.Flags().StringVar(&toCarrier, "to", "au", "target carrier")
	walk.Flags().StringToStringVar(&answers, "answer", nil, "answer for a step, as step=value (repeatable)")

	cmd.AddCommand(lint, walk)
	return cmd
}

func runLint(out io.Writer, dir string) error {
	registry, err := bootstrap.LoadWorkflows(dir)
	if err != nil {
		return err
	}

	for _, id := range registry.IDs() {
		def, _ := registry.Get(id)
		path, err := workflow.DefaultPath(def)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s (%d steps, ~%s)\n", color.GreenString("✓"), color.CyanString(id), len(def.Steps), def.EstimatedDuration.Duration())
		fmt.Fprintf(out, "  default path: %s\n", strings.Join(path, " → "))
	}
	return nil
}

func runWalk(ctx context.Context, out io.Writer, dir, workflowID, fromCarrier, toCarrier string, answers map[string]string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	registry, err := bootstrap.LoadWorkflows(dir)
	if err != nil {
		return err
	}
	engine := workflow.NewEngine(registry, workflow.NewMemoryStore(), lock.NewKeyedMutex(), logger.NopLogger{})

	sessionID := uuid.New()
	state, err := engine.Start(ctx, sessionID, workflowID, map[string]interface{}{
		workflow.DataFromCarrier: fromCarrier,
		workflow.DataToCarrier:   toCarrier,
	})
	if err != nil {
		return err
	}

	for i := 0; i < maxWalkSteps; i++ {
		for _, skipped := range state.AutoSkipped {
			fmt.Fprintf(out, "  %s %s\n", color.YellowString("skipped"), skipped)
		}
		if state.Completed || state.Step == nil {
			color.New(color.FgGreen).Fprintf(out, "Completed %s (%d%%)\n", state.WorkflowID, state.Progress)
			return nil
		}

		step := state.Step
		fmt.Fprintf(out, "%s [%s] %s %s\n", color.CyanString("%3d%%", state.Progress), step.Type, step.ID, step.Title)

		in := workflow.AdvanceInput{SessionID: sessionID, CurrentStepID: step.ID}
		answer, given := answers[step.ID]
		switch {
		case len(step.Options) > 0:
			in.SelectedOption = step.Options[0].Value
			if given {
				in.SelectedOption = answer
			}
			fmt.Fprintf(out, "      → %s\n", in.SelectedOption)
		case step.Validation != nil && step.Validation.Required && !given:
			return fmt.Errorf("step %s needs input; pass --answer %s=<value>", step.ID, step.ID)
		default:
			in.UserInput = answer
			if given {
				fmt.Fprintf(out, "      → %s\n", answer)
			}
		}

		state, err = engine.Advance(ctx, in)
		if err != nil {
			return fmt.Errorf("step %s: %w", step.ID, err)
		}
	}
	return fmt.Errorf("workflow %s did not finish within %d steps", workflowID, maxWalkSteps)
}
