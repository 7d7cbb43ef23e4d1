package main

import "github.com/agentic-research/panlens/cmd"

func main() {
	cmd.Execute()
}
