package main

import (
	"os"

	"github.com/project-tktt/hn-crawler/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
