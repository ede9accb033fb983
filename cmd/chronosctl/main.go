// Command chronosctl is the operator CLI for chronosd's control-plane RPCs.
package main

import (
	"os"

	"github.com/onlyati/chronos/internal/client"
)

func main() {
	os.Exit(client.Run(os.Args[1:]))
}
