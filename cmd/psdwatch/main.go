// psdwatch exports layered PSD/PSB documents to flat images whenever they
// are saved.
package main

import (
	"os"

	"github.com/hupe1980/psdwatch/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
