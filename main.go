package main

import "PeerBoard/internal/cli"

func main() {
	cli.Execute()
}
