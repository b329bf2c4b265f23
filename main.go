package main

import "github.com/ethanolivertroy/pinlock/cmd"

func main() {
	cmd.Execute()
}
