package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
)

const rootUsage = `fieldtimer — per-field latency for GraphQL queries

USAGE:
  fieldtimer <command> [flags]

COMMANDS:
  run      Time every top-level field of a query against an endpoint
  split    Print the isolated query for every top-level field
  help     Show help for any command
`

const runUsage = `run FLAGS:
  -config <path>             TOML file with defaults for any flag below
  -url <url>                 GraphQL endpoint (default: $FIELDTIMER_URL; required)
  -file <path>               Query document (default: stdin)
  -operation <name>          Operation to time when the document has several
  -header "Name: value"      Request header. Repeatable; overrides defaults
  -variables <json>          Variables as a JSON object
  -variables.file <path>     Read variables from a JSON file
  -timeout <duration>        Per-request timeout (default: $FIELDTIMER_TIMEOUT or 30s)
  -concurrency <n>           Calls in flight at once (default: 1). Values above 1
                             trade measurement accuracy for speed
  -retries <n>               Extra attempts for transport errors (default: 0)
  -rate <n>                  Max calls started per second (default: unpaced)
  -format <text|json>        Report format (default: text)
  -show-query                Print the derived query under failed fields
  -otel.endpoint <addr>      OTLP/gRPC collector endpoint
  -otel.service <name>       OpenTelemetry service name (default: fieldtimer)
  -metrics.textfile <path>   Write Prometheus series to a textfile after the run
  -log.level <level>         debug|info|warn|error (default: warn)
  -log.format <text|json>    Log format on stderr (default: text)
`

const splitUsage = `split FLAGS:
  -file <path>               Query document (default: stdin)
  -operation <name>          Operation to split when the document has several
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if errors.Is(err, errUsage) {
		log.Print(err)
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}
