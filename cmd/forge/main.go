// Command forge runs tasks declared in "<task>.toml" files, caching their
// results by a fingerprint of their declared inputs.
package main

import (
	"os"

	"forge/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	err := root.Execute()
	os.Exit(cli.ExitCode(err))
}
