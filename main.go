// Package main is the entry point for the zk-mutant CLI.
package main

import "zkmutant.dev/pkg/zkmutant/cmd"

func main() {
	cmd.Execute()
}
