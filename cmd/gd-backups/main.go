// Package main is the entry point for gd-backups.
package main

import "github.com/sharkusmanch/gd-backups/internal/cli"

func main() {
	cli.Execute()
}
