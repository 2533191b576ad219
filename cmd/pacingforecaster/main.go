package main

import (
	_ "time/tzdata"

	"pacing-forecaster/internal/cli"
)

func main() {
	cli.Execute()
}
