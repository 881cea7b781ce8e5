package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calehh/surety-app/app"
	"github.com/calehh/surety-app/config"
	"github.com/calehh/surety-app/indexer"
	cmtconfig "github.com/cometbft/cometbft/config"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	nm "github.com/cometbft/cometbft/node"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/cometbft/cometbft/proxy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var homeDir string

var nodeCmd = &cobra.Command{
	Use:   "surety",
	Short: "Surety runs the flight delay insurance chain",
	Long: `A CometBFT application for airline registration, flight
                status oracles and flight delay insurance`,
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, args)
	},
}

func init() {
	nodeCmd.Flags().StringVarP(&homeDir, FlagHome, "d", "", "home directory")
}

func startIndexer(ctx context.Context, cfg *config.Config, logger cmtlog.Logger) (*indexer.Service, error) {
	rpcUrl, err := url.Parse(cfg.RPC.ListenAddress)
	if err != nil {
		return nil, fmt.Errorf("parse rpc url: %w", err)
	}
	rpcUrl.Scheme = "http"
	ic := cfg.App.Indexer
	idx, err := indexer.NewChainIndexer(logger, cfg.App.IndexerDBPath(), rpcUrl.String(), ic.PollInterval)
	if err != nil {
		return nil, err
	}
	go idx.Start(ctx)
	svc := indexer.NewService(ic.ListenAddress, idx)
	go func() {
		if err := svc.Start(); err != nil {
			logger.Error("indexer service stopped", "err", err)
		}
	}()
	return svc, nil
}

func run(cmd *cobra.Command, args []string) {
	cfg, err := config.LoadConfig(homeDir)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	pv := privval.LoadFilePV(
		cfg.PrivValidatorKeyFile(),
		cfg.PrivValidatorStateFile(),
	)

	nodeKey, err := p2p.LoadNodeKey(cfg.NodeKeyFile())
	if err != nil {
		log.Fatalf("failed to load node's key: %v", err)
	}

	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout))
	logger, err = cmtflags.ParseLogLevel(cfg.LogLevel, logger, cmtconfig.DefaultLogLevel)
	if err != nil {
		log.Fatalf("failed to parse log level: %v", err)
	}

	app, err := app.NewSuretyApp(cfg.App, prometheus.DefaultRegisterer, logger)
	if err != nil {
		log.Fatalf("new App err:%v", err)
	}

	node, err := nm.NewNode(
		cfg.Config,
		pv,
		nodeKey,
		proxy.NewLocalClientCreator(app),
		nm.DefaultGenesisDocProviderFunc(cfg.Config),
		cmtconfig.DefaultDBProvider,
		nm.DefaultMetricsProvider(cfg.Instrumentation),
		logger,
	)
	if err != nil {
		log.Fatalf("Creating node: %v", err)
	}

	app.Start(node.BlockStore())
	err = node.Start()
	if err != nil {
		log.Fatalf("start comet node err %s", err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	var svc *indexer.Service
	if cfg.App.Indexer != nil && cfg.App.Indexer.Enable {
		svc, err = startIndexer(ctx, cfg, logger)
		if err != nil {
			log.Fatalf("start indexer err %s", err.Error())
		}
	}

	defer func() {
		log.Println("shut down...")
		cancel()
		done := make(chan struct{})
		go func() {
			defer close(done)
			if svc != nil {
				shutdownCtx, stop := context.WithTimeout(context.Background(), 3*time.Second)
				defer stop()
				if err := svc.Stop(shutdownCtx); err != nil {
					logger.Error("stop indexer service fail", "err", err)
				}
			}
			err = node.Stop()
			if err != nil {
				log.Fatalf("stop comet node err %s", err.Error())
			}
			node.Wait()
			app.Stop()
		}()
		timer := time.NewTimer(time.Second * 10)
		select {
		case <-timer.C:
			os.Exit(1)
		case <-done:
			return
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
