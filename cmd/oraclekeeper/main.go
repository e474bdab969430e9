package main

import "oracle-relay-keeper/internal/cli"

func main() {
	cli.Execute()
}
