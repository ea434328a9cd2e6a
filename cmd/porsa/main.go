package main

import "github.com/porsa-ai/porsa/internal/cli"

func main() {
	cli.Execute()
}
