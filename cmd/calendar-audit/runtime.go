package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"staycal/internal/infra/bootstrap"
	"staycal/internal/infra/config"
	"staycal/internal/infra/obs"
)

type globalOptions struct {
	envFile  string
	json     bool
	fixtures bool
}

// open loads configuration and connects adapters. Logs go to stderr so
// stdout stays parseable.
func (o *globalOptions) open(ctx context.Context) (*bootstrap.Runtime, error) {
	config.LoadDotEnv(o.envFile)
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := obs.NewLoggerTo(os.Stderr, cfg.Env)
	rt, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if o.fixtures {
		path := cfg.FixturesPath
		if path == "" {
			path = bootstrap.DefaultFixturesPath()
		}
		if err := rt.LoadFixtures(ctx, path); err != nil {
			_ = rt.Close(ctx)
			return nil, fmt.Errorf("fixtures: %w", err)
		}
	}
	return rt, nil
}

func (o *globalOptions) print(w io.Writer, v any, text string) error {
	if o.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := io.WriteString(w, text)
	return err
}
