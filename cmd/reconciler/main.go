package main

import (
	"fmt"
	"os"

	"invoice-reconciliation-service/cmd/reconciler/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "reconciler: %v\n", err)
		os.Exit(1)
	}
}
