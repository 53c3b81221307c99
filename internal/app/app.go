// Package app wires configuration, telemetry, AWS clients and stores into a workflow.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/autoshutdown/internal/config"
	"github.com/yairfalse/autoshutdown/internal/journal"
	awsprovider "github.com/yairfalse/autoshutdown/internal/provider/aws"
	"github.com/yairfalse/autoshutdown/internal/shutdown"
	"github.com/yairfalse/autoshutdown/internal/telemetry"
)

// Options adjusts how the app is assembled.
type Options struct {
	// LogOutput defaults to stdout.
	LogOutput io.Writer

	// DiscoverOnly skips the audit stores; the workflow may only Discover.
	DiscoverOnly bool
}

// App holds the assembled workflow and the resources it owns.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Telemetry *telemetry.Provider
	Workflow  *shutdown.Workflow

	journal *journal.Journal
}

// New builds the app from cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if !opts.DiscoverOnly {
		if err := cfg.ValidateTable(); err != nil {
			return nil, err
		}
	}

	out := opts.LogOutput
	if out == nil {
		out = os.Stdout
	}
	logger, err := telemetry.NewLogger(out, cfg.OTEL.ServiceName, cfg.Log)
	if err != nil {
		return nil, err
	}
	log.Logger = logger

	tel, err := telemetry.NewProvider(ctx, cfg.OTEL)
	if err != nil {
		return nil, fmt.Errorf("create telemetry: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, Telemetry: tel}

	awsCfg, err := awsprovider.LoadConfig(ctx, awsprovider.Config{
		Region:  cfg.AWS.Region,
		Profile: cfg.AWS.Profile,
	})
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	var inventory shutdown.Inventory = awsprovider.NewInventory(awsprovider.NewEC2Client(awsCfg, cfg.AWS.EC2Endpoint))

	var store shutdown.AuditStore = discoverOnlyStore{}
	if opts.DiscoverOnly {
		inventory = discoverOnlyInventory{inventory}
	} else {
		store, err = a.buildStore(cfg, awsprovider.NewDynamoDBClient(awsCfg, cfg.AWS.DynamoDBEndpoint))
		if err != nil {
			_ = a.Close(ctx)
			return nil, err
		}
	}

	a.Workflow = shutdown.New(inventory, store,
		shutdown.WithFilter(cfg.Filter),
		shutdown.WithRecorder(tel),
		shutdown.WithTracer(tel.Tracer()),
		shutdown.WithLogger(logger),
	)

	logger.Debug().
		Str("region", awsCfg.Region).
		Str("table", cfg.Table.Name).
		Str("journal", cfg.Journal.Path).
		Bool("discover_only", opts.DiscoverOnly).
		Msg("autoshutdown initialized")

	return a, nil
}

// buildStore returns the DynamoDB table, fanned out to the local journal when one is configured.
func (a *App) buildStore(cfg *config.Config, client awsprovider.DynamoDBAPI) (shutdown.AuditStore, error) {
	table := awsprovider.NewAuditTable(client, cfg.Table.Name)
	if cfg.Journal.Path == "" {
		return table, nil
	}

	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return nil, err
	}
	a.journal = j

	return shutdown.MultiStore{table, j}, nil
}

// Close releases the journal and shuts telemetry down.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close journal: %w", err))
		}
	}
	if a.Telemetry != nil {
		if err := a.Telemetry.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ErrDiscoverOnly is returned by stop and write calls on an app built for discovery.
var ErrDiscoverOnly = errors.New("app was built for discovery only")

type discoverOnlyInventory struct {
	shutdown.Inventory
}

func (discoverOnlyInventory) Stop(context.Context, []string) error {
	return ErrDiscoverOnly
}

type discoverOnlyStore struct{}

func (discoverOnlyStore) BatchPut(context.Context, []shutdown.LogEntry) error {
	return ErrDiscoverOnly
}
