package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"baseparts.ai/internal/logging"
	"baseparts.ai/internal/sim/baseparts"
	"baseparts.ai/internal/sim/catalogs"
	"baseparts.ai/internal/sim/schematic"
	"baseparts.ai/internal/sim/tuning"
)

// app is what every subcommand needs: tuning, a logger, the content
// catalogs and a loader bound to the blueprint directory.
type app struct {
	tuning  tuning.Tuning
	log     *zap.Logger
	content *catalogs.Catalogs
	loader  *baseparts.Loader
}

func newApp(g *globalFlags) (*app, error) {
	path := g.tuningPath
	if path == "" {
		path = filepath.Join(g.configsDir, "tuning.yaml")
	}
	tun, err := tuning.Load(path)
	missing := errors.Is(err, os.ErrNotExist)
	if err != nil && !missing {
		return nil, err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = tun.Log.Level
	logCfg.Development = tun.Log.Development || g.dev
	if g.verbose {
		logCfg.Level = "debug"
	}
	log, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if missing {
		log.Debug("no tuning file; using defaults", zap.String("path", path))
	}

	content, err := catalogs.Load(g.configsDir)
	if err != nil {
		return nil, fmt.Errorf("content catalogs: %w", err)
	}
	log.Debug("content catalogs loaded",
		zap.Int("blocks", len(content.Blocks.Order)),
		zap.Int("items", len(content.Items.Palette)),
		zap.Int("liquids", len(content.Liquids.Palette)),
		zap.String("blocks_digest", content.Blocks.DefsDigest))

	return &app{
		tuning:  tun,
		log:     log,
		content: content,
		loader: &baseparts.Loader{
			Source:  schematic.NewDirSource(g.configsDir, tun.NamesFile, tun.PartsDir),
			Content: content,
			Options: baseparts.Options{TileSize: tun.TileSize, TierExponent: tun.TierExponent},
			Log:     log,
		},
	}, nil
}

func (a *app) close() {
	_ = a.log.Sync()
}
