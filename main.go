package main

import (
	"log"

	"github.com/retrato-app/retrato/cmd"
	"github.com/retrato-app/retrato/config"
)

func main() {
	log.Printf("retrato %s (%s)", config.Version, config.CommitHash)
	cmd.Execute()
}
