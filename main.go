// Idiomatic entrypoint for the Cobra CLI that delegates handling to the Cobra root command in cmd/root.go

package main

import (
	"github.com/resiconnect/asa-sim/cmd"
)

func main() {
	cmd.Execute()
}
