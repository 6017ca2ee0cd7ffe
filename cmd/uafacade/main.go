package main

import "github.com/amine-amaach/uafacade/internal/cli"

func main() {
	cli.Run()
}
