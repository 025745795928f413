package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vhm24/taskflow/internal/domain/model"
	"github.com/vhm24/taskflow/internal/domain/model/instance"
	"github.com/vhm24/taskflow/internal/infrastructure/di"
	"github.com/vhm24/taskflow/pkg/logger"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage task instances",
	}
	cmd.AddCommand(newTaskCreateCmd())
	cmd.AddCommand(newTaskAssignCmd())
	cmd.AddCommand(newTaskShowCmd())
	return cmd
}

func newTaskCreateCmd() *cobra.Command {
	var taskType, target string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task instance in CREATED state",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := di.NewContainer(globalConfig, logger.Nop())
			if err != nil {
				return err
			}
			defer container.Stop()

			task, err := instance.New(model.TaskType(strings.ToUpper(taskType)), target)
			if err != nil {
				return err
			}
			if _, err := container.Catalog().StepCount(task.TaskType()); err != nil {
				return err
			}
			if err := container.TaskInstanceRepository().Create(cmd.Context(), task); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), task.ID())
			return nil
		},
	}
	cmd.Flags().StringVar(&taskType, "type", "", "task type (REFILL, INCASSATION, MAINTENANCE, INSPECTION)")
	cmd.Flags().StringVar(&target, "target", "", "target entity, e.g. a machine or bunker ID")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("target")
	return cmd
}

func newTaskAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <task-id> <actor-id>",
		Short: "Assign a created task to an actor",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := di.NewContainer(globalConfig, logger.Nop())
			if err != nil {
				return err
			}
			defer container.Stop()

			taskID, err := model.NewTaskInstanceIDFromString(args[0])
			if err != nil {
				return err
			}
			actorID, err := model.NewActorID(args[1])
			if err != nil {
				return err
			}
			task, err := container.WorkflowService().Assign(cmd.Context(), taskID, actorID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s\n", task.ID(), task.TaskType(), actorID)
			return nil
		},
	}
}

func newTaskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task instance and its captured steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := di.NewContainer(globalConfig, logger.Nop())
			if err != nil {
				return err
			}
			defer container.Stop()

			taskID, err := model.NewTaskInstanceIDFromString(args[0])
			if err != nil {
				return err
			}
			task, err := container.WorkflowService().GetTask(cmd.Context(), taskID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Task:    %s\n", task.ID())
			fmt.Fprintf(out, "Type:    %s\n", task.TaskType())
			fmt.Fprintf(out, "Target:  %s\n", task.TargetEntityID())
			fmt.Fprintf(out, "Status:  %s\n", task.Status())
			if actor := task.AssignedActorID(); actor != nil {
				fmt.Fprintf(out, "Actor:   %s\n", actor)
			}
			fmt.Fprintf(out, "Step:    %d\n", task.CurrentStepOrder())
			if reason := task.CancelReason(); reason != "" {
				fmt.Fprintf(out, "Reason:  %s\n", reason)
			}

			executions, err := container.StepExecutionRepository().ListByTask(cmd.Context(), taskID)
			if err != nil {
				return err
			}
			for _, e := range executions {
				line := fmt.Sprintf("  step %d  %s  by %s  at %s",
					e.StepOrder(), e.ID(), e.ActorID(), e.CompletedAt().Value().Format("2006-01-02 15:04:05"))
				if e.Supersedes() != nil {
					line += "  (supersedes " + e.Supersedes().String() + ")"
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}
