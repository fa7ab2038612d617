package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/angelmondragon/warehouse/api/responses"
	"github.com/angelmondragon/warehouse/pkg/config"
	pkgerrors "github.com/angelmondragon/warehouse/pkg/errors"
	"github.com/angelmondragon/warehouse/pkg/logger"
)

const serviceName = "warehouse"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	opts := parseOptions(flag.CommandLine, os.Args[1:])

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = logg.WithFields(ctx, map[string]any{
		"env": cfg.App.Env,
		"cmd": opts.cmd,
	})

	err = run(ctx, cfg, logg, opts)
	stop()
	if err != nil {
		_, payload := responses.ErrorPayload(err)
		_ = responses.Encode(os.Stderr, payload)
		if pkgerrors.Rejected(err) {
			logg.Warn(logg.WithField(ctx, "reason", err.Error()), "command rejected")
		} else {
			logg.Error(logg.WithFields(ctx, responses.DumpFields(err)), "command failed", err)
		}
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts options) (err error) {
	a, err := bootstrap(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, a.close())
	}()
	return a.dispatch(ctx, opts, os.Stdout)
}

// exitCode maps typed errors to distinct statuses so scripts can tell a
// rejected command from a broken environment.
func exitCode(err error) int {
	if typed := pkgerrors.As(err); typed != nil {
		return pkgerrors.MetadataFor(typed.Code()).ExitCode
	}
	return 1
}
