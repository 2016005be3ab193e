// Command broadcast runs the gossip broadcast node workload over
// stdin/stdout.
package main

import (
	"os"

	"distsys/pkg/distsys/broadcast"
	"distsys/pkg/distsys/core"
	"distsys/pkg/distsys/definition"
)

func main() {
	log := definition.NewDefaultLogger("broadcast")
	if err := core.Run(os.Stdin, os.Stdout, log, broadcast.Decode, broadcast.DecodeService, broadcast.FromInit(log)); err != nil {
		log.Fatalf("node exited with error: %v", err)
	}
}
