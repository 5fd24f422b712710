package main

import (
	"github.com/wildwest/orderbot/internal/app"
	"github.com/wildwest/orderbot/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
