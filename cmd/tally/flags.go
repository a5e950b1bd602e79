// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to the YAML configuration file",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Usage: "directory for state, blocks and message queues (overrides the configuration)",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0-9)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "output logs in JSON format",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Usage: "address to serve prometheus metrics on, disabled when empty",
	}
	nemesisFlag = cli.StringFlag{
		Name:  "nemesis",
		Usage: "path to the RLP encoded nemesis block, used when block storage is empty",
	}
	accountFlag = cli.StringFlag{
		Name:  "account",
		Usage: "hex address of an account to print",
	}
	dumpFlag = cli.BoolFlag{
		Name:  "dump",
		Usage: "dump the full account structure",
	}
	forceFlag = cli.BoolFlag{
		Name:  "force",
		Usage: "overwrite an existing configuration file",
	}
)
