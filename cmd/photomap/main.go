package main

import (
	"os"

	"github.com/apex/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.WithError(err).Error("photomap failed")
		os.Exit(1)
	}
}
