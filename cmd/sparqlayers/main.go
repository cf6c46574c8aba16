// Command sparqlayers edits SPARQL queries as algebra trees and runs their
// operators against SPARQL endpoints.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/roach88/sparqlayers/internal/cli"
)

func main() {
	// A .env file may supply SPARQLAYERS_LOCATION and SPARQLAYERS_AUTH.
	_ = godotenv.Load()

	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
