// Package main is the entry point for the guidebot service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/guidebot/cmd/guidebot/app"
)

func main() {
	app.NewApp().Run()
}
