// Command echo runs the echo node workload over stdin/stdout.
package main

import (
	"os"

	"distsys/pkg/distsys/core"
	"distsys/pkg/distsys/definition"
	"distsys/pkg/distsys/echo"
)

func main() {
	log := definition.NewDefaultLogger("echo")
	if err := core.Run(os.Stdin, os.Stdout, log, echo.Decode, echo.DecodeService, echo.FromInit(log)); err != nil {
		log.Fatalf("node exited with error: %v", err)
	}
}
