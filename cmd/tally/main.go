// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/tally/accountcache"
	"github.com/vechain/tally/config"
	"github.com/vechain/tally/ledger"
	"github.com/vechain/tally/log"
	"github.com/vechain/tally/statecache"
	"github.com/vechain/tally/tally"
)

var (
	version   string
	gitCommit string
	gitTag    string
	logger    = log.WithContext("pkg", "main")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version: fullVersion(),
		Name:    "Tally",
		Usage:   "Ledger state engine",
		Flags: []cli.Flag{
			configFlag,
			dataDirFlag,
			verbosityFlag,
			jsonLogsFlag,
			metricsAddrFlag,
		},
		Commands: []cli.Command{
			{
				Name:   "recover",
				Usage:  "recover the state from the data directory and save it",
				Flags:  []cli.Flag{nemesisFlag},
				Action: recoverAction,
			},
			{
				Name:   "inspect",
				Usage:  "print the chain state without saving it",
				Flags:  []cli.Flag{nemesisFlag, accountFlag, dumpFlag},
				Action: inspectAction,
			},
			{
				Name:   "init-config",
				Usage:  "write the default configuration to --config or stdout",
				Flags:  []cli.Flag{forceFlag},
				Action: initConfigAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Fatal:", err)
		os.Exit(1)
	}
}

func recoverAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	initLogger(ctx)
	stopMetrics, err := startMetricsServer(ctx.GlobalString(metricsAddrFlag.Name))
	if err != nil {
		return err
	}
	defer stopMetrics()

	l, err := openLedger(ctx, true, false)
	if err != nil {
		return err
	}
	defer func() { logger.Info("closing ledger..."); l.Close() }()

	if err := l.Persist(); err != nil {
		return errors.WithMessage(err, "persist")
	}
	printSummary(l)
	return nil
}

func inspectAction(ctx *cli.Context) error {
	initLogger(ctx)
	l, err := openLedger(ctx, false, true)
	if err != nil {
		return err
	}
	defer l.Close()

	printSummary(l)
	if !ctx.IsSet(accountFlag.Name) {
		return nil
	}
	addr, err := tally.ParseAddress(ctx.String(accountFlag.Name))
	if err != nil {
		return errors.Wrap(err, "parse account")
	}
	accounts, err := statecache.ViewOf[*accountcache.View](l.View())
	if err != nil {
		return err
	}
	acc, ok := accounts.Get(addr)
	if !ok {
		return errors.Errorf("account %v not found", addr)
	}
	if ctx.Bool(dumpFlag.Name) {
		spew.Fdump(os.Stdout, acc)
		return nil
	}
	fmt.Printf("Account:     %v\n", acc.Address)
	fmt.Printf("Registered:  %v\n", acc.AddressHeight)
	if acc.HasPublicKey() {
		fmt.Printf("Public key:  %v (height %v)\n", acc.PublicKey, acc.PublicKeyHeight)
	}
	for _, e := range acc.Balances.All() {
		fmt.Printf("Balance:     %v %v\n", e.Asset, e.Amount)
	}
	return nil
}

func initConfigAction(ctx *cli.Context) error {
	cfg := config.Default()
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	path := ctx.GlobalString(configFlag.Name)
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return writeConfig(path, data, ctx.Bool(forceFlag.Name))
}

func printSummary(l *ledger.Ledger) {
	head := l.Head()
	sup := l.Supplemental()
	fmt.Printf(`Data dir:      %v
Height:        %v
Head:          %v
Score:         %v
Transactions:  %v
State hash:    %v
`, l.Dir().Root(), head.Height(), head.ID, sup.Score, sup.TransactionsCount, l.View().CalculateStateHash().StateHash)
}
