package main

import "github.com/bibbank/lendcore/internal/cli"

func main() {
	cli.Execute()
}
