package main

import (
	"os"

	"lvm-backup/src/cli"
)

func main() {
	os.Exit(cli.Execute())
}
