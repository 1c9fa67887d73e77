// Command snmphealth monitors device reachability over SNMP.
//
// It runs either as a long-lived service (scheduler + HTTP API) or as a set
// of one-shot commands that check devices, list interfaces, and import
// device definitions into the configuration store.
//
// Usage:
//
//	snmphealth [--config settings.yml] <command> [flags]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "snmphealth: %v\n", err)
		os.Exit(1)
	}
}
