package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/coinforge/coindw/pkg/config"
	"github.com/coinforge/coindw/pkg/db"
	"github.com/coinforge/coindw/pkg/etl"
	"github.com/coinforge/coindw/pkg/logging"
	"github.com/coinforge/coindw/pkg/market"
	"github.com/coinforge/coindw/pkg/metadata"
	"github.com/coinforge/coindw/pkg/notify"
	"github.com/coinforge/coindw/pkg/utils"
)

// App owns everything one pipeline invocation needs: process metadata, the
// control-store configuration, and a configured orchestrator.
type App struct {
	Logger *zap.Logger
	Meta   *metadata.Meta
	Config *config.Store

	bootstrap *db.Client
}

// Initialize connects to the control store via the environment-supplied
// bootstrap target and loads the operational configuration.
func Initialize(ctx context.Context) (*App, error) {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	meta := metadata.Collect()
	logger.Info("Pipeline session",
		zap.String("session", meta.SessionID),
		zap.String("host", meta.Host),
		zap.Int("pid", meta.PID))

	bootstrap, err := db.Open(ctx, logger, meta, db.Options{
		Host:     utils.Env("DB_HOST", "localhost"),
		Port:     utils.EnvInt("DB_PORT", 3306),
		User:     utils.Env("DB_USER", "root"),
		Password: utils.Env("DB_PASS", ""),
	})
	if err != nil {
		return nil, fmt.Errorf("connect control store: %w", err)
	}

	return &App{
		Logger:    logger,
		Meta:      meta,
		Config:    config.NewStore(bootstrap),
		bootstrap: bootstrap,
	}, nil
}

// Close releases the bootstrap connection.
func (a *App) Close() error {
	return a.bootstrap.Close()
}

// NewPipeline assembles the four-stage pipeline from the current
// configuration.
func (a *App) NewPipeline(ctx context.Context, stopOnError bool) (*etl.Pipeline, error) {
	dbCfg, err := a.Config.DB(ctx)
	if err != nil {
		return nil, err
	}
	stgCfg, err := a.Config.Staging(ctx)
	if err != nil {
		return nil, err
	}
	extCfg, err := a.Config.Extract(ctx)
	if err != nil {
		return nil, err
	}
	emailCfg, err := a.Config.Email(ctx)
	if err != nil {
		return nil, err
	}

	runner := &etl.Runner{
		Logger: a.Logger,
		Meta:   a.Meta,
		Mailer: notify.NewMailer(a.Logger, emailCfg.User, emailCfg.Password, emailCfg.Recipient),
		Connect: func(ctx context.Context, localInfile bool) (*db.Client, error) {
			return db.Open(ctx, a.Logger, a.Meta, db.Options{
				Host:        dbCfg.Host,
				Port:        dbCfg.Port,
				User:        dbCfg.User,
				Password:    dbCfg.Password,
				LocalInfile: localInfile,
			})
		},
	}

	fetcher := market.New(market.Opts{
		BaseURL:    extCfg.BaseURL,
		CoinsPath:  extCfg.CoinsPath,
		VsCurrency: extCfg.VsCurrency,
		PerPage:    extCfg.PerPage,
	})

	return &etl.Pipeline{
		Logger:      a.Logger,
		Runner:      runner,
		StopOnError: stopOnError,
		Jobs: []etl.Job{
			&etl.ExtractJob{Logger: a.Logger, Meta: a.Meta, Cfg: extCfg, Fetcher: fetcher},
			&etl.LoadStagingJob{Logger: a.Logger, DBCfg: dbCfg, StgCfg: stgCfg},
			&etl.TransformJob{Logger: a.Logger, DBCfg: dbCfg},
			&etl.LoadMartJob{Logger: a.Logger, DBCfg: dbCfg},
		},
	}, nil
}
