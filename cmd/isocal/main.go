package main

import "github.com/llm-d/isocal/internal/cli"

func main() {
	cli.Execute()
}
