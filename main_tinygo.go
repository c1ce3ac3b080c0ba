//go:build tinygo && baremetal && cortexm

package main

import (
	"tickos/app"
	"tickos/hal"
)

func main() {
	app.Run(hal.New())
}
