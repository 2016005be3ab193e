// Command unique-ids runs the globally-unique-id node workload over
// stdin/stdout.
package main

import (
	"os"

	"distsys/pkg/distsys/core"
	"distsys/pkg/distsys/definition"
	"distsys/pkg/distsys/uniqueid"
)

func main() {
	log := definition.NewDefaultLogger("unique-ids")
	if err := core.Run(os.Stdin, os.Stdout, log, uniqueid.Decode, uniqueid.DecodeService, uniqueid.FromInit(log)); err != nil {
		log.Fatalf("node exited with error: %v", err)
	}
}
