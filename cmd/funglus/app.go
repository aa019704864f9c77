// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jinterlante1206/FunglusLab/cmd/funglus/config"
	"github.com/jinterlante1206/FunglusLab/pkg/batch"
	"github.com/jinterlante1206/FunglusLab/pkg/labapi"
	"github.com/jinterlante1206/FunglusLab/pkg/logging"
	"github.com/jinterlante1206/FunglusLab/pkg/selector"
	"github.com/jinterlante1206/FunglusLab/pkg/session"
	"github.com/jinterlante1206/FunglusLab/pkg/telemetry"
	"github.com/jinterlante1206/FunglusLab/pkg/ux"
)

const serviceName = "funglus"

// globalFlags are the persistent flags of the root command.
type globalFlags struct {
	configPath  string
	apiURL      string
	logLevel    string
	personality string
	yes         bool
}

// app holds everything a command needs once the config is loaded. It is
// built by the root PersistentPreRunE and released by close.
type app struct {
	flags globalFlags

	cfg        config.FunglusConfig
	configPath string
	logger     *logging.Logger
	client     *labapi.Client
	registry   *session.CycleRegistry
	bench      *batch.Workbench
	shutdown   func(context.Context) error

	// confirm is replaced in tests.
	confirm func(ctx context.Context, prompt string) (bool, error)
}

// setup loads the config and builds the logger, telemetry, client and cycle
// registry.
//
// # Description
//
// Flag values win over the config file and environment. The personality is
// initialized before anything is printed.
//
// # Inputs
//
//   - ctx: Command context, used for telemetry exporters.
//
// # Outputs
//
//   - error: Config load or validation failure, or telemetry init failure.
func (a *app) setup(ctx context.Context) error {
	cfg, path, err := a.loadConfig()
	if err != nil {
		return NewCommandError("funglus", ExitUsage, "check the config file or pass --config", err)
	}
	if a.flags.apiURL != "" {
		cfg.API.BaseURL = strings.TrimRight(a.flags.apiURL, "/")
	}
	if a.flags.logLevel != "" {
		cfg.Logging.Level = strings.ToLower(a.flags.logLevel)
	}
	if a.flags.personality != "" {
		cfg.UI.Personality = strings.ToLower(a.flags.personality)
	}
	if err := config.Validate(cfg); err != nil {
		return NewCommandError("funglus", ExitUsage, "run with --help for usage", err)
	}
	a.cfg, a.configPath = cfg, path

	ux.InitPersonality(cfg.UI.Personality)

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logging.LevelWarn
	}
	a.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: serviceName,
		JSON:    cfg.Logging.JSON,
		Output:  ux.Stderr(),
	})

	tcfg := telemetry.DefaultConfig(serviceName)
	tcfg.TraceExporter = cfg.Telemetry.TraceExporter
	tcfg.MetricExporter = cfg.Telemetry.MetricExporter
	if cfg.Telemetry.OTLPEndpoint != "" {
		tcfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	}
	tcfg.Output = ux.Stderr()
	shutdown, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		return NewCommandError("funglus", ExitGeneric, "check telemetry.trace_exporter and telemetry.metric_exporter", err)
	}
	a.shutdown = shutdown

	a.client = labapi.NewClient(cfg.API.BaseURL,
		labapi.WithTimeout(cfg.API.Timeout),
		labapi.WithRateLimit(cfg.API.MaxRPS),
		labapi.WithCatalogLimit(cfg.API.CatalogLimit),
		labapi.WithLogger(a.logger),
	)
	a.registry = session.NewCycleRegistry(a.client,
		session.WithLogger(a.logger),
		session.WithMessageTTL(cfg.UI.FeedbackTTL, cfg.UI.ErrorTTL),
	)
	a.bench = batch.New(a.client, batch.WithLogger(a.logger))

	a.logger.Debug("funglus ready", "api", a.client.BaseURL(), "config", path, "personality", cfg.UI.Personality)
	return nil
}

func (a *app) loadConfig() (config.FunglusConfig, string, error) {
	if a.flags.configPath != "" {
		cfg, err := config.LoadFrom(a.flags.configPath)
		return cfg, a.flags.configPath, err
	}
	path, err := config.DefaultPath()
	if err != nil {
		return config.FunglusConfig{}, "", err
	}
	if err := config.Load(); err != nil {
		return config.FunglusConfig{}, path, err
	}
	return config.Global, path, nil
}

// close flushes telemetry and the log file. Safe to call on a partially
// built app.
func (a *app) close() {
	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdown(ctx); err != nil && a.logger != nil {
			a.logger.Warn("telemetry shutdown failed", "error", err)
		}
		a.shutdown = nil
	}
	if a.logger != nil {
		_ = a.logger.Close()
	}
}

// catalogs fetches the stage, sample and origin catalogs used to resolve
// names to ids.
func (a *app) catalogs(ctx context.Context) (selector.Catalogs, error) {
	var cats selector.Catalogs
	for _, kind := range labapi.CatalogKinds {
		entries, err := a.client.ListCatalog(ctx, kind)
		if err != nil {
			return selector.Catalogs{}, fmt.Errorf("load %s catalog: %w", kind, err)
		}
		switch kind {
		case labapi.CatalogStages:
			cats.Stages = entries
		case labapi.CatalogSamples:
			cats.Samples = entries
		case labapi.CatalogOrigins:
			cats.Origins = entries
		}
	}
	return cats, nil
}

// newSelector builds a selector with the configured reset policy.
func (a *app) newSelector(cats selector.Catalogs, opts ...selector.Option) *selector.Selector {
	base := []selector.Option{
		selector.WithResetOverrides(a.cfg.ResetOverrides()),
		selector.WithCatalogs(cats),
		selector.WithLogger(a.logger),
		selector.WithMessageTTL(a.cfg.UI.SelectorTTL),
	}
	return selector.New(append(base, opts...)...)
}

// cycleName returns the explicit value, or the configured default cycle.
func (a *app) cycleName(explicit string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	return a.cfg.Session.DefaultCycle
}

// keyFlags are the name-based key flags shared by entry and batch commands.
type keyFlags struct {
	cycle  string
	stage  string
	sample string
	origin string
}

func (k *keyFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&k.cycle, "cycle", "", "Cycle name or id (defaults to session.default_cycle)")
	cmd.Flags().StringVar(&k.stage, "stage", "", "Stage key or name (e.g. materia_prima, \"Tamo Húmedo\")")
	cmd.Flags().StringVar(&k.sample, "sample", "", "Sample name")
	cmd.Flags().StringVar(&k.origin, "origin", "", "Origin name")
}

// resolve drives a selector through the flags and confirms the tuple.
//
// # Description
//
// The cycle goes through the registry, so an unknown name is kept for the
// stage tables that create cycles on first use. Sample is set before origin
// because a sample change may reset the origin.
//
// # Outputs
//
//   - selector.Tuple: The confirmed key.
//   - error: selector.ErrUnknownStage, ErrInvalidOption, ErrIncompleteKeys,
//     or a catalog fetch error.
func (a *app) resolve(ctx context.Context, k keyFlags) (selector.Tuple, error) {
	cats, err := a.catalogs(ctx)
	if err != nil {
		return selector.Tuple{}, err
	}
	sel := a.newSelector(cats)

	if name := a.cycleName(k.cycle); name != "" {
		cycle, known := a.registry.SelectActive(ctx, name)
		if !known {
			a.logger.Debug("cycle not in catalog", "cycle", name)
		}
		sel.SetCycle(selector.RefFromCycle(cycle))
	}
	if k.stage != "" {
		if err := sel.SetStage(k.stage); err != nil {
			return selector.Tuple{}, err
		}
	}
	if k.sample != "" {
		if err := sel.SetSample(k.sample); err != nil {
			return selector.Tuple{}, err
		}
	}
	if k.origin != "" {
		if err := sel.SetOrigin(k.origin); err != nil {
			return selector.Tuple{}, err
		}
	}
	return sel.Confirm()
}

// generalKeys resolves the flags to id-based general-data keys.
func (a *app) generalKeys(ctx context.Context, k keyFlags) (labapi.EntryKeys, selector.Tuple, error) {
	tuple, err := a.resolve(ctx, k)
	if err != nil {
		return labapi.EntryKeys{}, tuple, err
	}
	keys := tuple.Keys()
	switch {
	case keys.CycleID == 0:
		return keys, tuple, labapi.NewValidationError("ciclo %q no está en el catálogo", tuple.Cycle.Name)
	case keys.StageID == 0:
		return keys, tuple, labapi.NewValidationError("etapa %q no está en el catálogo", tuple.Stage.Name)
	}
	return keys, tuple, nil
}

// ask shows a yes/no prompt. --yes answers yes; a non-interactive terminal
// without --yes is a usage error.
func (a *app) ask(ctx context.Context, cmdPath, prompt string) (bool, error) {
	if a.flags.yes {
		return true, nil
	}
	confirm := a.confirm
	if confirm == nil {
		if !ux.IsInteractive() {
			return false, usageError(cmdPath, "refusing to delete without --yes in a non-interactive session")
		}
		confirm = huhConfirm
	}
	return confirm(ctx, prompt)
}

// confirmAction is ask with a declined prompt turned into a cancellation.
func (a *app) confirmAction(ctx context.Context, cmdPath, prompt string) error {
	ok, err := a.ask(ctx, cmdPath, prompt)
	if err != nil {
		return err
	}
	if !ok {
		return NewCommandError(cmdPath, ExitCancelled, "", errCancelled)
	}
	return nil
}
