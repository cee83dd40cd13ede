package main

import (
	"github.com/tidepool-org/vitals-bridge/app"
)

func main() {
	app.New().Run()
}
