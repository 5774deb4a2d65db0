// SPDX-FileCopyrightText: 2025 the nncpkit contributors
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"io"
	"strings"
	"text/template"
)

var (
	cliHelpTemplate = `
NAME:
{{printf "%s - %s" .Name .ShortDesc}}

USAGE:
{{printf "\t%s" .UsageLine}}

{{if .LongDesc}}
DESCRIPTION:
{{printf "\t%s" .LongDesc}}
{{end}}
`
	cliUsageTemplate = `nncpkit drives the lifecycle of NMState node network configuration policies: it
applies a desired interface state to cluster nodes, waits for the NMState handler
to report success and rolls the change back on release.

Usage:
	nncpkit <command> [arguments]
Supported commands:
{{range .}}
	{{printf "\t%s: " .Name}} {{.ShortDesc}}
{{end}}
`
)

// PrintHelp prints out the help text for the passed in command.
func PrintHelp(cmdName string, w io.Writer) {
	if strings.TrimSpace(cmdName) == "" {
		PrintCliUsage(w)
		return
	}
	for _, cmd := range Commands {
		if cmdName == cmd.Name {
			executeTemplate(w, cliHelpTemplate, cmd)
			return
		}
	}
}

// PrintCliUsage prints the CLI usage text to the passed io.Writer.
func PrintCliUsage(w io.Writer) {
	executeTemplate(w, cliUsageTemplate, Commands)
}

func executeTemplate(w io.Writer, tmplText string, tmplData interface{}) {
	tmpl := template.Must(template.New("usage").Parse(tmplText))
	if err := tmpl.Execute(w, tmplData); err != nil {
		panic(err)
	}
}
