package di

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/afero"

	appconfig "github.com/vhm24/taskflow/internal/app/config"
	"github.com/vhm24/taskflow/internal/application/service"
	"github.com/vhm24/taskflow/internal/application/usecase/dispatch"
	"github.com/vhm24/taskflow/internal/domain/model/catalog"
	"github.com/vhm24/taskflow/internal/domain/repository"
	"github.com/vhm24/taskflow/internal/infrastructure/persistence/memory"
	redisrepo "github.com/vhm24/taskflow/internal/infrastructure/persistence/redis"
	sqliterepo "github.com/vhm24/taskflow/internal/infrastructure/persistence/sqlite"
	"github.com/vhm24/taskflow/pkg/logger"
)

// Container wires the engine's components by hand in dependency order.
// Sessions live in Redis when a URL is configured, otherwise in memory;
// tasks and step executions always go to SQLite.
type Container struct {
	config appconfig.Config
	log    logger.Logger

	db *sql.DB

	catalog *catalog.Catalog

	taskRepo    repository.TaskInstanceRepository
	execRepo    repository.StepExecutionRepository
	sessionRepo repository.SessionRepository

	redisSessions *redisrepo.SessionRepository

	workflowService service.WorkflowService
	sweepService    service.SweepService
	dispatcher      *dispatch.Dispatcher
}

// NewContainer creates and initializes the container
func NewContainer(cfg appconfig.Config, log logger.Logger) (*Container, error) {
	c := &Container{config: cfg, log: log}

	if err := c.initializeCatalog(); err != nil {
		return nil, fmt.Errorf("initialize catalog: %w", err)
	}
	if err := c.initializeInfrastructure(); err != nil {
		return nil, fmt.Errorf("initialize infrastructure: %w", err)
	}
	c.initializeApplication()
	return c, nil
}

func (c *Container) initializeCatalog() error {
	if path := c.config.CatalogPath(); path != "" {
		cat, err := catalog.Load(afero.NewOsFs(), path)
		if err != nil {
			return err
		}
		c.catalog = cat
		return nil
	}
	cat, err := catalog.LoadDefault()
	if err != nil {
		return err
	}
	c.catalog = cat
	return nil
}

func (c *Container) initializeInfrastructure() error {
	db, err := sql.Open("sqlite3", c.config.DBPath()+"?_foreign_keys=on")
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	c.db = db

	migrator := sqliterepo.NewMigrator(db)
	if err := migrator.Migrate(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	c.taskRepo = sqliterepo.NewTaskInstanceRepository(db)
	c.execRepo = sqliterepo.NewStepExecutionRepository(db)

	if url := c.config.RedisURL(); url != "" {
		sessions, err := redisrepo.NewSessionRepository(url)
		if err != nil {
			return fmt.Errorf("connect session store: %w", err)
		}
		c.redisSessions = sessions
		c.sessionRepo = sessions
	} else {
		c.sessionRepo = memory.NewSessionRepository()
	}
	return nil
}

func (c *Container) initializeApplication() {
	actorLocks := service.NewActorLockMap()
	validator := service.NewValidationService()

	c.workflowService = service.NewWorkflowService(
		c.catalog,
		c.taskRepo,
		c.execRepo,
		c.sessionRepo,
		validator,
		actorLocks,
		service.WorkflowServiceConfig{DependencyTimeout: c.config.DependencyTimeout()},
		c.log,
	)

	c.sweepService = service.NewSweepService(
		c.sessionRepo,
		c.workflowService,
		service.SweepServiceConfig{
			IdleTimeout:       c.config.IdleTimeout(),
			SweepInterval:     c.config.SweepInterval(),
			DependencyTimeout: c.config.DependencyTimeout(),
		},
		c.log,
	)

	c.dispatcher = dispatch.NewDispatcher(c.workflowService, c.config.AdminActorIDs(), c.log)
}

// Start launches background services
func (c *Container) Start(ctx context.Context) error {
	return c.sweepService.Start(ctx)
}

// Stop halts background services and releases resources
func (c *Container) Stop() error {
	var firstErr error
	if err := c.sweepService.Stop(); err != nil {
		firstErr = err
	}
	if c.redisSessions != nil {
		if err := c.redisSessions.Disconnect(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Config returns the resolved application configuration
func (c *Container) Config() appconfig.Config { return c.config }

// Logger returns the application logger
func (c *Container) Logger() logger.Logger { return c.log }

// Catalog returns the loaded step catalog
func (c *Container) Catalog() *catalog.Catalog { return c.catalog }

// WorkflowService returns the workflow service
func (c *Container) WorkflowService() service.WorkflowService { return c.workflowService }

// SweepService returns the idle sweep service
func (c *Container) SweepService() service.SweepService { return c.sweepService }

// Dispatcher returns the action dispatcher
func (c *Container) Dispatcher() *dispatch.Dispatcher { return c.dispatcher }

// TaskInstanceRepository returns the task store
func (c *Container) TaskInstanceRepository() repository.TaskInstanceRepository { return c.taskRepo }

// StepExecutionRepository returns the step record store
func (c *Container) StepExecutionRepository() repository.StepExecutionRepository { return c.execRepo }

// SessionRepository returns the session store
func (c *Container) SessionRepository() repository.SessionRepository { return c.sessionRepo }
