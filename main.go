// slightbackup/main.go
package main

import (
	"os"

	"slightbackup/cmd"
)

func main() {
	if err := cmd.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
