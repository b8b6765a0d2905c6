package main

import (
	"log"

	"github.com/fleetworks/dispatchd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
