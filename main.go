package main

import (
	"github.com/flightlog/fmsave/cmd"
)

func main() {
	cmd.Execute()
}
