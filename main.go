package main

import (
	"github.com/aadsdarts/spectators-videochat/cmd"
	"github.com/aadsdarts/spectators-videochat/internal/logging"
)

func main() {
	// Initialize logging
	closeLog := logging.Init()
	defer closeLog()

	cmd.Execute()
}
