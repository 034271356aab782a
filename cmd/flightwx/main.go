package main

import (
	"fmt"
	"os"

	"github.com/yungbote/flightwx/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "flightwx: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
