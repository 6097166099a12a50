// Package main is the entry point for the fgcelo CLI, which rates fighting-game
// players across tournament sources and records their pre-event Elo snapshots.
package main

import "github.com/pable/fgc-elo/cmd"

func main() {
	cmd.Execute()
}
