package main

import (
	"flag"
	"fmt"
	"os"

	"signalgate/internal/di"
	"signalgate/internal/structures"
)

func main() {
	flags := &structures.CliFlags{}
	flag.StringVar(&flags.ConfigPath, "config", "config.yaml", "path to the YAML config file")
	flag.BoolVar(&flags.DebugMode, "debug", false, "enable debug logging to stderr")
	flag.Parse()

	if _, err := di.InitApp(flags); err != nil {
		fmt.Fprintf(os.Stderr, "signalgated: %s\n", err)
		os.Exit(1)
	}
}
