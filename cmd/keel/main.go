// Copyright (c) 2025 The Keel developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/keel-fi/keel/api"
	"github.com/keel-fi/keel/co"
	"github.com/keel-fi/keel/genesis"
	"github.com/keel-fi/keel/health"
	"github.com/keel-fi/keel/log"
	"github.com/keel-fi/keel/metrics"
	"github.com/keel-fi/keel/state"
)

var (
	version   string
	gitCommit string
	release   = "dev"

	logger = log.WithContext("pkg", "main")
)

func fullVersion() string {
	return fmt.Sprintf("%s-%s-commit%s", release, version, gitCommit)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "Keel",
		Usage:     "Node of the Keel staking and sale pool network",
		Copyright: "2025 The Keel developers",
		Flags: []cli.Flag{
			genesisFlag,
			dataDirFlag,
			apiAddrFlag,
			apiCorsFlag,
			verbosityFlag,
			jsonLogsFlag,
			enableAPILogsFlag,
			enableMetricsFlag,
		},
		Action: defaultAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	initLogger(ctx)
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	gene, err := selectGenesis(ctx)
	if err != nil {
		return err
	}

	dataDir := ctx.String(dataDirFlag.Name)
	mainDB, err := openMainDB(dataDir)
	if err != nil {
		return err
	}
	defer func() { logger.Info("closing main database..."); mainDB.Close() }()

	events, err := openEventDB(dataDir)
	if err != nil {
		return err
	}
	defer func() { logger.Info("closing event database..."); events.Close() }()

	st := state.New(mainDB)
	if err := seedGenesis(st, mainDB, gene); err != nil {
		return err
	}

	clock := newBlockClock(gene.LaunchTime())
	nodeHealth := &health.Health{}

	handler := api.New(&api.Backend{
		State:        func() *state.State { return st },
		BlockContext: clock.context,
		EventDB:      events,
		Health:       nodeHealth,
	}, api.Options{
		AllowedOrigins:  ctx.String(apiCorsFlag.Name),
		EnableMetrics:   ctx.Bool(enableMetricsFlag.Name),
		EnableReqLogger: ctx.Bool(enableAPILogsFlag.Name),
	})

	listener, err := net.Listen("tcp", ctx.String(apiAddrFlag.Name))
	if err != nil {
		return errors.WithMessage(err, "listen API address")
	}

	goes := &co.Goes{}
	defer goes.Wait()

	srv := &http.Server{Handler: handler}
	defer func() { logger.Info("stopping API server..."); srv.Shutdown(context.Background()) }()

	done := handleExitSignal()

	goes.Go(func() {
		// Serve returns ErrServerClosed on Shutdown
		_ = srv.Serve(listener)
	})
	goes.Go(func() { clock.run(done, nodeHealth) })

	printStartupMessage(gene, dataDir, "http://"+listener.Addr().String())

	<-done
	return nil
}

func printStartupMessage(gene *genesis.Genesis, dataDir string, apiURL string) {
	if dataDir == "" {
		dataDir = "Memory"
	}
	fmt.Printf(`Starting Keel node
    Network     [ %v ]
    Launch time [ %v ]
    Data dir    [ %v ]
    API portal  [ %v ]
    Version     [ %v ]
`,
		gene.Name(),
		gene.LaunchTime(),
		dataDir,
		apiURL,
		fullVersion(),
	)
}
