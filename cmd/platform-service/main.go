package main

import (
	"os"

	"github.com/planfold/planfold/server/platformservice"
)

func main() {
	if err := platformservice.Run(); err != nil {
		os.Exit(1)
	}
}
