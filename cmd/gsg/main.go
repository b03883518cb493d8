package main

import (
	"os"

	"github.com/bnema/galho-seco-gateway/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
