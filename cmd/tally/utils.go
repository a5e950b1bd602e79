// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"encoding/hex"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/elastic/gosigar"
	"github.com/ethereum/go-ethereum/common/fdlimit"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/tally/block"
	"github.com/vechain/tally/co"
	"github.com/vechain/tally/config"
	"github.com/vechain/tally/ledger"
	"github.com/vechain/tally/log"
	"github.com/vechain/tally/metrics"
)

func initLogger(ctx *cli.Context) {
	format := log.FormatTerminal
	if ctx.GlobalBool(jsonLogsFlag.Name) {
		format = log.FormatJSON
	}
	log.Setup(log.Options{
		Writer:    os.Stderr,
		Format:    format,
		Color:     isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()),
		Verbosity: log.LevelFromVerbosity(ctx.GlobalInt(verbosityFlag.Name)),
	})
}

func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := ctx.GlobalString(configFlag.Name); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}
	if dir := ctx.GlobalString(dataDirFlag.Name); dir != "" {
		cfg.Node.DataDir = dir
	}
	cfg.Node.DBCacheSizeMB = normalizeCacheSize(cfg.Node.DBCacheSizeMB)
	cfg.Node.DBOpenFiles = min(cfg.Node.DBOpenFiles, suggestFDCache())
	return cfg, cfg.Validate()
}

func normalizeCacheSize(sizeMB int) int {
	if sizeMB < 16 {
		sizeMB = 16
	}

	var mem gosigar.Mem
	if err := mem.Get(); err != nil {
		logger.Warn("failed to get total mem:", "err", err)
	} else {
		// limit to 1/2 os physical ram
		limitMB := int(mem.Total / 1024 / 1024 / 2)
		if sizeMB > limitMB {
			sizeMB = limitMB
			logger.Warn("cache size(MB) limited", "limit", limitMB)
		}
	}
	return sizeMB
}

func suggestFDCache() int {
	limit, err := fdlimit.Current()
	if err != nil {
		logger.Warn("failed to get fd limit:", "err", err)
		return 64
	}
	if limit <= 1024 {
		logger.Warn("low fd limit, increase it if possible", "limit", limit)
	}
	return min(limit/2, 5120)
}

func writeConfig(path string, data []byte, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.Errorf("%v exists, use --force to overwrite", path)
	}
	return errors.Wrap(os.WriteFile(path, data, 0o600), "write config")
}

// loadNemesis reads a nemesis block stored as RLP, raw or hex encoded.
func loadNemesis(path string) (*block.Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read nemesis")
	}
	if text := strings.TrimPrefix(strings.TrimSpace(string(data)), "0x"); isHex(text) {
		if data, err = hex.DecodeString(text); err != nil {
			return nil, errors.Wrap(err, "decode nemesis hex")
		}
	}
	var dec block.Decoder
	if err := rlp.DecodeBytes(data, &dec); err != nil {
		return nil, errors.Wrap(err, "decode nemesis")
	}
	return block.NewElement(dec.Result), nil
}

func isHex(s string) bool {
	if len(s) == 0 || len(s)%2 != 0 {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}

func openLedger(ctx *cli.Context, progress, readOnly bool) (*ledger.Ledger, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	opts := ledger.Options{ReadOnly: readOnly}
	if path := ctx.String(nemesisFlag.Name); path != "" {
		opts.Nemesis = func() (*block.Element, error) { return loadNemesis(path) }
	}

	var bar *pb.ProgressBar
	if progress {
		opts.Progress = func(done, total uint64) {
			if bar == nil {
				bar = pb.New64(int64(total)).SetMaxWidth(90).Start()
			}
			bar.Set64(int64(done))
		}
	}
	l, err := ledger.Open(handleExitSignal(), cfg, opts)
	if bar != nil {
		bar.Finish()
	}
	return l, err
}

// startMetricsServer serves the prometheus registry on addr. An empty addr
// leaves metrics disabled.
func startMetricsServer(addr string) (func(), error) {
	if addr == "" {
		return func() {}, nil
	}
	metrics.InitializePrometheusMetrics()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen metrics addr [%v]", addr)
	}
	router := mux.NewRouter()
	router.Handle("/metrics", metrics.HTTPHandler()).Methods(http.MethodGet)

	srv := &http.Server{Handler: handlers.CompressHandler(router), ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}
	var goes co.Goes
	goes.Go(func() {
		srv.Serve(listener)
	})
	logger.Info("metrics server started", "url", "http://"+listener.Addr().String()+"/metrics")
	return func() {
		srv.Close()
		goes.Wait()
	}, nil
}

func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)
		sig := <-exitSignalCh
		logger.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}
