package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vhm24/taskflow/internal/application/usecase/dispatch"
	"github.com/vhm24/taskflow/internal/domain/model"
	"github.com/vhm24/taskflow/internal/infrastructure/di"
	"github.com/vhm24/taskflow/pkg/logger"
)

// newServeCmd runs the engine with a line-based stdin/stdout transport.
// Each input line is one user action:
//
//	<actor> <role> start <task-id>
//	<actor> <role> submit <step> key=value ...
//	<actor> <role> cancel [task-id] [reason...]
//	<actor> <role> status
//	<actor> <role> resubmit <task-id> <step> key=value ...
//
// A production deployment replaces this loop with its chat transport and
// calls Dispatcher.OnUserAction directly.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the engine with a line-based transport on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			container, err := di.NewContainer(globalConfig, log)
			if err != nil {
				return err
			}
			defer container.Stop()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := container.Start(ctx); err != nil {
				return err
			}
			log.Info("engine started",
				"db", globalConfig.DBPath(),
				"sessions", sessionBackend(),
				"idle_timeout", globalConfig.IdleTimeout(),
			)

			dispatcher := container.Dispatcher()
			lines := make(chan string)
			go func() {
				defer close(lines)
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for scanner.Scan() {
					lines <- scanner.Text()
				}
			}()

			out := cmd.OutOrStdout()
			for {
				select {
				case <-ctx.Done():
					log.Info("shutting down")
					return nil
				case line, ok := <-lines:
					if !ok {
						return nil
					}
					reply := handleLine(ctx, dispatcher, line)
					fmt.Fprintln(out, reply)
				}
			}
		},
	}
}

func newLogger() logger.Logger {
	return logger.New(logger.Config{
		Level:  logger.Level(globalConfig.LogLevel()),
		Output: os.Stderr,
		JSON:   globalConfig.LogJSON(),
	})
}

func sessionBackend() string {
	if globalConfig.RedisURL() != "" {
		return "redis"
	}
	return "memory"
}

func handleLine(ctx context.Context, d *dispatch.Dispatcher, line string) string {
	actorID, action, err := parseLine(line)
	if err != nil {
		return "error: " + err.Error()
	}
	prompt := d.OnUserAction(ctx, actorID, action)
	return renderPrompt(prompt)
}

func parseLine(line string) (model.ActorID, dispatch.Action, error) {
	parts := strings.Fields(line)
	if len(parts) < 3 {
		return model.ActorID{}, dispatch.Action{}, fmt.Errorf("expected <actor> <role> <action> ...")
	}

	actorID, err := model.NewActorID(parts[0])
	if err != nil {
		return model.ActorID{}, dispatch.Action{}, err
	}
	role := model.Role(strings.ToUpper(parts[1]))
	if !role.IsValid() {
		return model.ActorID{}, dispatch.Action{}, fmt.Errorf("unknown role %q", parts[1])
	}

	action := dispatch.Action{Kind: dispatch.ActionKind(parts[2]), Role: role}
	rest := parts[3:]

	switch action.Kind {
	case dispatch.ActionStart:
		if len(rest) != 1 {
			return model.ActorID{}, dispatch.Action{}, fmt.Errorf("start needs a task ID")
		}
		action.TaskID = rest[0]
	case dispatch.ActionSubmit:
		if len(rest) < 1 {
			return model.ActorID{}, dispatch.Action{}, fmt.Errorf("submit needs a step number")
		}
		step, err := strconv.Atoi(rest[0])
		if err != nil {
			return model.ActorID{}, dispatch.Action{}, fmt.Errorf("invalid step number %q", rest[0])
		}
		action.StepOrder = step
		action.Fields = parseFields(rest[1:])
	case dispatch.ActionCancel:
		if len(rest) > 0 && !strings.Contains(rest[0], " ") && looksLikeTaskID(rest[0]) {
			action.TaskID = rest[0]
			rest = rest[1:]
		}
		action.Reason = strings.Join(rest, " ")
	case dispatch.ActionStatus:
	case dispatch.ActionResubmit:
		if len(rest) < 2 {
			return model.ActorID{}, dispatch.Action{}, fmt.Errorf("resubmit needs a task ID and step number")
		}
		action.TaskID = rest[0]
		step, err := strconv.Atoi(rest[1])
		if err != nil {
			return model.ActorID{}, dispatch.Action{}, fmt.Errorf("invalid step number %q", rest[1])
		}
		action.StepOrder = step
		action.Fields = parseFields(rest[2:])
	default:
		return model.ActorID{}, dispatch.Action{}, fmt.Errorf("unknown action %q", parts[2])
	}
	return actorID, action, nil
}

func parseFields(tokens []string) map[string]string {
	fields := make(map[string]string, len(tokens))
	for _, tok := range tokens {
		if k, v, ok := strings.Cut(tok, "="); ok {
			fields[k] = v
		}
	}
	return fields
}

// looksLikeTaskID distinguishes a leading task reference from free-form
// cancel reasons. Task IDs are UUIDs.
func looksLikeTaskID(s string) bool {
	return strings.Count(s, "-") == 4 && len(s) == 36
}

func renderPrompt(p dispatch.Prompt) string {
	var b strings.Builder
	b.WriteString(p.Text)
	for _, c := range p.Choices {
		b.WriteString("\n  [" + c.Label + "]")
	}
	return b.String()
}
