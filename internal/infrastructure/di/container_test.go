package di

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	appconfig "github.com/vhm24/taskflow/internal/app/config"
	"github.com/vhm24/taskflow/internal/domain/model"
	"github.com/vhm24/taskflow/internal/domain/model/instance"
	"github.com/vhm24/taskflow/pkg/logger"
)

func testConfig(t *testing.T) appconfig.Config {
	t.Helper()
	return appconfig.NewAppConfig(
		filepath.Join(t.TempDir(), "taskflow.db"),
		"", // in-memory sessions
		"", // embedded catalog
		30*time.Minute,
		time.Minute,
		5*time.Second,
		nil,
		"error",
		false,
	)
}

func TestContainerWiresEngine(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"))

	container, err := NewContainer(testConfig(t), logger.Nop())
	require.NoError(t, err)

	require.NoError(t, container.Start(context.Background()))

	// Exercise a full flow through the wired services.
	ctx := context.Background()
	actor, err := model.NewActorID("op-1")
	require.NoError(t, err)

	task, err := instance.New(model.TaskTypeRefill, "VM-042/B3")
	require.NoError(t, err)
	require.NoError(t, container.TaskInstanceRepository().Create(ctx, task))

	_, err = container.WorkflowService().Assign(ctx, task.ID(), actor)
	require.NoError(t, err)
	result, err := container.WorkflowService().Start(ctx, task.ID(), actor)
	require.NoError(t, err)
	assert.Equal(t, "scan_bunker", result.Step.Name())

	sessions, err := container.SessionRepository().List(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	require.NoError(t, container.Stop())
}

func TestContainerRejectsMissingCatalogFile(t *testing.T) {
	cfg := appconfig.NewAppConfig(
		filepath.Join(t.TempDir(), "taskflow.db"),
		"",
		filepath.Join(t.TempDir(), "absent.yaml"),
		30*time.Minute, time.Minute, 5*time.Second, nil, "error", false,
	)
	_, err := NewContainer(cfg, logger.Nop())
	assert.Error(t, err)
}
