package main

import (
	"os"

	"github.com/littlebearapps/seo-ads-expert/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
