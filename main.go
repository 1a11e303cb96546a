// Package main provides the entry point for the keycap command line.
package main

import "keycap-preview/internal/cli"

func main() {
	cli.Execute()
}
