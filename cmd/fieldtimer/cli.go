package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dolmen-go/jsonmap"
	document "github.com/hanpama/fieldtimer/internal/document"
	eventbus "github.com/hanpama/fieldtimer/internal/eventbus"
	isolate "github.com/hanpama/fieldtimer/internal/isolate"
	logging "github.com/hanpama/fieldtimer/internal/logging"
	metrics "github.com/hanpama/fieldtimer/internal/metrics"
	otel "github.com/hanpama/fieldtimer/internal/otel"
	report "github.com/hanpama/fieldtimer/internal/report"
	runner "github.com/hanpama/fieldtimer/internal/runner"
	timing "github.com/hanpama/fieldtimer/internal/timing"
)

// errUsage marks errors caused by bad invocation rather than a failed run.
var errUsage = errors.New("usage")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errUsage}, args...)...)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, rootUsage)
		return usageError("missing command")
	}

	cmd, cmdArgs := args[0], args[1:]
	switch cmd {
	case "run":
		return cmdRun(ctx, cmdArgs, stdin, stdout, stderr)
	case "split":
		return cmdSplit(cmdArgs, stdin, stdout, stderr)
	case "help", "-h", "-help", "--help":
		return cmdHelp(cmdArgs, stdout)
	default:
		fmt.Fprint(stderr, rootUsage)
		return usageError("unknown command %q", cmd)
	}
}

func cmdHelp(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, rootUsage)
		return nil
	}
	switch args[0] {
	case "run":
		fmt.Fprint(stdout, runUsage)
	case "split":
		fmt.Fprint(stdout, splitUsage)
	default:
		return usageError("unknown help topic %q", args[0])
	}
	return nil
}

type runConfig struct {
	config        string
	url           string
	file          string
	operation     string
	headers       headerFlag
	variables     string
	variablesFile string
	timeout       time.Duration
	concurrency   int
	retries       int
	rate          float64
	format        string
	showQuery     bool
	otelEndpoint  string
	otelService   string
	metricsFile   string
	logLevel      string
	logFormat     string
}

func parseRunFlags(args []string, stderr io.Writer) (*runConfig, error) {
	cfg := &runConfig{
		timeout:     30 * time.Second,
		concurrency: 1,
		format:      "text",
		otelService: "fieldtimer",
		logLevel:    "warn",
		logFormat:   "text",
	}
	if path := configPath(args); path != "" {
		fc, err := loadFileConfig(path)
		if err != nil {
			return nil, err
		}
		if err := fc.apply(cfg); err != nil {
			return nil, err
		}
	}
	if v := os.Getenv("FIELDTIMER_URL"); v != "" {
		cfg.url = v
	}
	if v := os.Getenv("FIELDTIMER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, usageError("FIELDTIMER_TIMEOUT: %v", err)
		}
		cfg.timeout = d
	}

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&cfg.config, "config", cfg.config, "TOML config file")
	fs.StringVar(&cfg.url, "url", cfg.url, "GraphQL endpoint")
	fs.StringVar(&cfg.file, "file", cfg.file, "Query document")
	fs.StringVar(&cfg.operation, "operation", cfg.operation, "Operation name")
	fs.Var(&cfg.headers, "header", "Request header")
	fs.StringVar(&cfg.variables, "variables", cfg.variables, "Variables JSON")
	fs.StringVar(&cfg.variablesFile, "variables.file", cfg.variablesFile, "Variables JSON file")
	fs.DurationVar(&cfg.timeout, "timeout", cfg.timeout, "Per-request timeout")
	fs.IntVar(&cfg.concurrency, "concurrency", cfg.concurrency, "Calls in flight")
	fs.IntVar(&cfg.retries, "retries", cfg.retries, "Transport error retries")
	fs.Float64Var(&cfg.rate, "rate", cfg.rate, "Max calls per second")
	fs.StringVar(&cfg.format, "format", cfg.format, "Report format")
	fs.BoolVar(&cfg.showQuery, "show-query", cfg.showQuery, "Print derived queries of failures")
	fs.StringVar(&cfg.otelEndpoint, "otel.endpoint", cfg.otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&cfg.otelService, "otel.service", cfg.otelService, "OpenTelemetry service name")
	fs.StringVar(&cfg.metricsFile, "metrics.textfile", cfg.metricsFile, "Prometheus textfile")
	fs.StringVar(&cfg.logLevel, "log.level", cfg.logLevel, "Log level")
	fs.StringVar(&cfg.logFormat, "log.format", cfg.logFormat, "Log format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, runUsage)
		return nil, usageError("%v", err)
	}
	explicit := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	if explicit["variables.file"] && !explicit["variables"] {
		cfg.variables = ""
	}

	switch {
	case cfg.url == "":
		fmt.Fprint(stderr, runUsage)
		return nil, usageError("-url is required")
	case cfg.variables != "" && cfg.variablesFile != "":
		return nil, usageError("-variables and -variables.file are mutually exclusive")
	case cfg.format != "text" && cfg.format != "json":
		return nil, usageError("-format must be text or json, got %q", cfg.format)
	case cfg.concurrency < 1:
		return nil, usageError("-concurrency must be at least 1")
	case cfg.retries < 0:
		return nil, usageError("-retries must not be negative")
	case cfg.rate < 0:
		return nil, usageError("-rate must not be negative")
	}
	return cfg, nil
}

func cmdRun(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := parseRunFlags(args, stderr)
	if err != nil {
		return err
	}
	logger, err := logging.New(stderr, cfg.logLevel, cfg.logFormat)
	if err != nil {
		return usageError("%v", err)
	}

	doc, err := loadDocument(cfg.file, cfg.operation, stdin)
	if err != nil {
		return err
	}
	vars, err := loadVariables(cfg.variables, cfg.variablesFile)
	if err != nil {
		return err
	}

	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)

	shutdown, err := otel.Setup(ctx, cfg.otelEndpoint, cfg.otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("otel shutdown", "error", err)
		}
	}()

	var m *metrics.Metrics
	if cfg.metricsFile != "" {
		m = metrics.New()
		defer m.Subscribe()()
	}

	client, err := timing.New(cfg.url,
		timing.WithTimeout(cfg.timeout),
		timing.WithHeaders(cfg.headers.h),
		timing.WithVariables(vars),
	)
	if err != nil {
		return usageError("%v", err)
	}
	if cfg.concurrency > 1 {
		logger.Warn("concurrent calls share the network and the server; timings will be inflated", "concurrency", cfg.concurrency)
	}
	r := runner.New(client,
		runner.WithConcurrency(cfg.concurrency),
		runner.WithRetries(cfg.retries),
		runner.WithRate(cfg.rate),
		runner.WithLogger(logger),
	)

	results, runErr := r.Run(ctx, doc)
	var fatal *runner.FatalRunError
	if errors.As(runErr, &fatal) {
		return runErr
	}

	rows := report.Rank(results)
	if cfg.format == "json" {
		err = report.WriteJSON(stdout, rows)
	} else {
		err = report.WriteText(stdout, rows, report.WithQueries(cfg.showQuery))
	}
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if m != nil {
		if err := m.WriteTextfile(cfg.metricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("run interrupted after %d of %d fields: %w", len(results), isolate.Count(doc), runErr)
	}
	return nil
}

func cmdSplit(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	file, operation := "", ""
	fs := flag.NewFlagSet("split", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&file, "file", file, "Query document")
	fs.StringVar(&operation, "operation", operation, "Operation name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, splitUsage)
		return usageError("%v", err)
	}

	doc, err := loadDocument(file, operation, stdin)
	if err != nil {
		return err
	}
	units := isolate.Units(doc)
	if len(units) == 0 {
		return &runner.FatalRunError{Reason: "isolation produced no fields", Err: runner.ErrNoFields}
	}
	for i, u := range units {
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		fmt.Fprintf(stdout, "# [%d] %s\n%s", u.Index, u.Field, u.Document.String())
	}
	return nil
}

func loadDocument(path, operation string, stdin io.Reader) (*document.Document, error) {
	var src []byte
	var err error
	if path == "" || path == "-" {
		src, err = io.ReadAll(stdin)
	} else {
		src, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read query: %w", err)
	}
	doc, err := document.Parse(string(src), operation)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return doc, nil
}

func loadVariables(text, path string) (jsonmap.Ordered, error) {
	var vars jsonmap.Ordered
	raw := []byte(text)
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return vars, fmt.Errorf("read variables: %w", err)
		}
		raw = b
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return vars, nil
	}
	if raw[0] != '{' {
		return vars, usageError("variables must be a JSON object")
	}
	if err := vars.UnmarshalJSON(raw); err != nil {
		return vars, usageError("invalid variables JSON: %v", err)
	}
	return vars, nil
}
