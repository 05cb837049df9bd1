// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/keel-fi/keel/eventdb"
	"github.com/keel-fi/keel/genesis"
	"github.com/keel-fi/keel/log"
	"github.com/keel-fi/keel/lvldb"
	"github.com/keel-fi/keel/state"
)

func initLogger(ctx *cli.Context) {
	level := new(slog.LevelVar)
	level.Set(log.FromLegacyLevel(ctx.Int(verbosityFlag.Name)))

	var handler slog.Handler
	if ctx.Bool(jsonLogsFlag.Name) {
		handler = log.JSONHandlerWithLevel(os.Stderr, level)
	} else {
		useColor := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
		handler = log.NewTerminalHandlerWithLevel(os.Stderr, level, useColor)
	}
	log.SetDefault(log.NewLogger(handler))
}

func selectGenesis(ctx *cli.Context) (*genesis.Genesis, error) {
	path := ctx.String(genesisFlag.Name)
	if path == "" {
		return genesis.NewDevnet(), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.WithMessage(err, "open genesis config")
	}
	defer file.Close()

	cfg, err := genesis.LoadConfig(file)
	if err != nil {
		return nil, err
	}
	return genesis.NewCustomNet(cfg)
}

func openMainDB(dataDir string) (*lvldb.LevelDB, error) {
	if dataDir == "" {
		return lvldb.NewMem()
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, errors.WithMessage(err, "create data dir")
	}
	return lvldb.New(filepath.Join(dataDir, "main.db"), lvldb.Options{})
}

func openEventDB(dataDir string) (*eventdb.EventDB, error) {
	if dataDir == "" {
		return eventdb.NewMem()
	}
	return eventdb.New(filepath.Join(dataDir, "events.db"))
}

var genesisKey = []byte("genesis")

// seedGenesis builds the genesis state on an empty database. On subsequent
// starts it only verifies the database belongs to the selected network.
func seedGenesis(st *state.State, store *lvldb.LevelDB, gene *genesis.Genesis) error {
	existing, err := store.Get(genesisKey)
	if err != nil {
		if !store.IsNotFound(err) {
			return errors.WithMessage(err, "read genesis marker")
		}
		if err := gene.Build(st); err != nil {
			return err
		}
		if err := st.Commit(); err != nil {
			return errors.WithMessage(err, "commit genesis state")
		}
		return store.Put(genesisKey, []byte(gene.Name()))
	}

	if string(existing) != gene.Name() {
		return errors.Errorf("database belongs to network %q, not %q", existing, gene.Name())
	}
	return nil
}

func handleExitSignal() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

		sig := <-quit
		logger.Info("got exit signal", "signal", sig)
		close(done)
	}()
	return done
}
