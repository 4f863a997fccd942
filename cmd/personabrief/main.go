package main

import (
	"personabrief/cmd/cmd"
	"personabrief/internal/logger"
)

func main() {
	logger.Init()
	cmd.Execute()
}
