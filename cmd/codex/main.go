// codex - privacy-first LLM provider routing for the daemon-codex organizer.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	"github.com/jeranaias/daemon-codex/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	var err error
	switch cmd {
	case cli.CmdStatus:
		err = cli.HandleStatus(args)
	case cli.CmdModels:
		err = cli.HandleModels(args)
	case cli.CmdChat:
		err = cli.HandleChat(args)
	case cli.CmdCategorize:
		err = cli.HandleCategorize(args)
	case cli.CmdConfig:
		err = cli.HandleConfig(args)
	case cli.CmdUsage:
		err = cli.HandleUsage(args)
	case cli.CmdWatch:
		err = cli.HandleWatch(args)
	case cli.CmdVersion:
		cli.PrintVersion()
	case cli.CmdHelp:
		cli.PrintUsage()
	default:
		cli.PrintUsage()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
