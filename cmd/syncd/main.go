// Command syncd is the directory synchronizer's entrypoint. It accepts no
// flags (spec §6): it expects config.json in the working directory and
// decides, based on an environment marker, whether to run as the supervisor
// or as the worker it re-execs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"syncd/internal/logging"
	"syncd/internal/supervisor"
)

const configFileName = "config.json"

func main() {
	root := &cobra.Command{
		Use:          "syncd",
		Short:        "Multi-task directory synchronizer",
		Long:         "syncd mirrors one or more source directory trees into target trees, watching for changes and re-syncing after a debounce window.",
		SilenceUsage: true,
		RunE:         run,
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	if supervisor.IsWorkerMode() {
		log := logging.Global()
		defer log.Close()
		os.Exit(supervisor.RunWorker(configFileName, log))
		return nil
	}

	if _, err := os.Stat(configFileName); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", configFileName, err)
		os.Exit(1)
	}

	log := logging.Global()
	defer log.Close()
	os.Exit(supervisor.Run(log))
	return nil
}
