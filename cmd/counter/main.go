// Command counter runs the replicated g-counter node workload over
// stdin/stdout, using the external seq-kv service for durable storage.
package main

import (
	"os"

	"distsys/pkg/distsys/core"
	"distsys/pkg/distsys/counter"
	"distsys/pkg/distsys/counter/kvproto"
	"distsys/pkg/distsys/definition"
)

func main() {
	log := definition.NewDefaultLogger("counter")
	if err := core.Run(os.Stdin, os.Stdout, log, counter.Decode, kvproto.Decode, counter.FromInit(log)); err != nil {
		log.Fatalf("node exited with error: %v", err)
	}
}
