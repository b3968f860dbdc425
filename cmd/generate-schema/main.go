// Command generate-schema writes the JSON schema of the wwwserver
// configuration file, for editor completion and CI validation of configs.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/marmos91/wwwserver/pkg/config"
)

var version = "dev"

func main() {
	fs := flag.NewFlagSet("generate-schema", flag.ExitOnError)
	output := fs.String("o", "config.schema.json", "output file, or - for stdout")
	_ = fs.Parse(os.Args[1:])

	// A positional argument still names the output file.
	if fs.NArg() > 0 {
		*output = fs.Arg(0)
	}

	schema, err := config.GenerateSchema(version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *output == "-" {
		_, _ = os.Stdout.Write(schema)
		return
	}

	if err := os.WriteFile(*output, schema, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing schema file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("JSON schema written to %s\n", *output)
}
