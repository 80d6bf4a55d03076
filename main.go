package main

import "github.com/savvy-web/silk-sync-action/internal/cmd"

func main() {
	cmd.Execute()
}
