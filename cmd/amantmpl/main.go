// Package main provides the entry point for the amantmpl CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/amantmpl/cmd/amantmpl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
