// Command daedalus loads node definitions and a flow document, then checks
// or prepares the flow and prints the state of every node.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch command := os.Args[1]; command {
	case "run":
		err = runCommand(ctx, os.Args[2:], os.Stdout)
	case "check":
		err = checkCommand(ctx, os.Args[2:], os.Stdout)
	case "list":
		err = listCommand(ctx, os.Args[2:], os.Stdout)
	case "publish":
		err = publishCommand(ctx, os.Args[2:], os.Stdout)
	case "type":
		err = typeCommand(os.Args[2:], os.Stdout)
	case "help", "--help", "-h":
		printUsage()
		return
	case "version", "--version", "-v":
		fmt.Println("daedalus " + version)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		if !errors.Is(err, errFlowFailed) && !errors.Is(err, errValueRejected) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func printUsage() {
	usage := `Daedalus - typed dataflow checker and runner

Usage:
  daedalus <command> [options]

Available Commands:
  run       Prepare every node of a flow and print the results
  check     Validate the structure of a flow against its definitions
  list      List the loaded node definitions
  publish   Upload a definitions document to Azure Blob Storage
  type      Normalize a type, show its default and validate a value against it
  help      Show this help message
  version   Show version information

Sources:
  -defs and -flow accept a local path, file://path,
  azure://container/blob or s3://bucket/key.

Examples:
  daedalus run -defs nodes.yaml -flow flow.yaml
  daedalus run -defs s3://defs/nodes.yaml -flow flow.json -json
  daedalus publish -defs nodes.yaml -to azure://definitions/nodes.yaml
  daedalus type -type '{"name":"number","integer":true}' -data 1.5

Use "daedalus <command> -h" for the options of a command.
`
	fmt.Print(usage)
}
