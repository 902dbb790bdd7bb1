// Package main is the entry point for guide-loader, which embeds the guide
// corpus into a persistent guide store.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/guidebot/cmd/guide-loader/app"
)

func main() {
	app.NewApp().Run()
}
