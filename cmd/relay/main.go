package main

import "github.com/agentsolvr/relay/cmd/relay/command"

func main() {
	command.Execute()
}
