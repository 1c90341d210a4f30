// Package main is the entry point for the EchoMail server.
package main

import (
	"os"

	"github.com/echomail-ai/echomail/cmd/echomail-server/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
