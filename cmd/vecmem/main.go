// Package main provides the vecmem CLI.
//
// Usage:
//
//	vecmem [flags] <command> [args]
//
// Commands:
//
//	add         - Add or replace records in a collection (JSON on stdin)
//	search      - Find the nearest records to a query embedding (JSON on stdin)
//	delete      - Delete one record by id
//	list        - List every record in a collection
//	collections - List all collections under the data directory
//	compact     - Rewrite a collection's log to its live records
//	snapshot    - Export a collection to a snapshot file
//	restore     - Replace a collection's contents from a snapshot file
//	transcript  - Fetch a video transcript from the companion service
//
// Every command is a single operation: one JSON result on stdout, diagnostics
// on stderr, non-zero exit status on failure.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/hupe1980/vecmem/cmd/vecmem/commands"
)

func main() {
	// A .env in the working directory is a convenience for local setups;
	// missing is fine.
	_ = godotenv.Load()

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
