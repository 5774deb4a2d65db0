// SPDX-FileCopyrightText: 2025 the nncpkit contributors
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"flag"

	"github.com/go-logr/logr"
)

var (
	// Commands is the list of commands the CLI offers.
	Commands = []*Command{
		ApplyCmd,
	}
)

// Command is a single CLI command.
type Command struct {
	// Name is the name of the command.
	Name string
	// UsageLine is the single line usage of the command.
	UsageLine string
	// ShortDesc is the short description shown in the CLI usage overview.
	ShortDesc string
	// LongDesc is the long description shown in the command help.
	LongDesc string
	// AddFlags registers the command specific flags.
	AddFlags func(fs *flag.FlagSet)
	// Run executes the command.
	Run func(ctx context.Context, logger logr.Logger) error
}
