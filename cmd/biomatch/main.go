package main

import (
	"fmt"
	"os"

	"github.com/hupe1980/biomatch/internal/bmerr"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(bmerr.ExitCode(err))
	}
}
