package main

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// fileConfig is the TOML form of the run flags. Every key is optional.
//
//	url = "https://api.example.com/graphql"
//	timeout = "10s"
//
//	[headers]
//	Authorization = "Bearer ..."
type fileConfig struct {
	URL         string            `toml:"url"`
	Operation   string            `toml:"operation"`
	Headers     map[string]string `toml:"headers"`
	Variables   string            `toml:"variables"`
	Timeout     string            `toml:"timeout"`
	Concurrency int               `toml:"concurrency"`
	Retries     int               `toml:"retries"`
	Rate        float64           `toml:"rate"`
	Format      string            `toml:"format"`
	ShowQuery   bool              `toml:"show_query"`
	Otel        struct {
		Endpoint string `toml:"endpoint"`
		Service  string `toml:"service"`
	} `toml:"otel"`
	Metrics struct {
		Textfile string `toml:"textfile"`
	} `toml:"metrics"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
}

func loadFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return nil, usageError("config %s: %v", path, err)
	}
	return &fc, nil
}

// apply copies the values present in fc over cfg.
func (fc *fileConfig) apply(cfg *runConfig) error {
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setString(&cfg.url, fc.URL)
	setString(&cfg.operation, fc.Operation)
	setString(&cfg.variables, fc.Variables)
	setString(&cfg.format, fc.Format)
	setString(&cfg.otelEndpoint, fc.Otel.Endpoint)
	setString(&cfg.otelService, fc.Otel.Service)
	setString(&cfg.metricsFile, fc.Metrics.Textfile)
	setString(&cfg.logLevel, fc.Log.Level)
	setString(&cfg.logFormat, fc.Log.Format)
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return usageError("config timeout: %v", err)
		}
		cfg.timeout = d
	}
	if fc.Concurrency != 0 {
		cfg.concurrency = fc.Concurrency
	}
	if fc.Retries != 0 {
		cfg.retries = fc.Retries
	}
	if fc.Rate != 0 {
		cfg.rate = fc.Rate
	}
	cfg.showQuery = cfg.showQuery || fc.ShowQuery
	for name, value := range fc.Headers {
		cfg.headers.setDefault(name, value)
	}
	return nil
}

// configPath finds -config in args ahead of the full flag parse, so the file
// can supply defaults that flags then override.
func configPath(args []string) string {
	for i, a := range args {
		if a == "--" {
			break
		}
		name, value, hasValue := strings.Cut(a, "=")
		if name != "-config" && name != "--config" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

type headerFlag struct {
	h        http.Header
	defaults map[string]bool
}

func (f *headerFlag) String() string { return "" }

// Set adds a header given as "Name: value". A header given on the command
// line replaces one of the same name from the config file.
func (f *headerFlag) Set(v string) error {
	name, value, ok := strings.Cut(v, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" || strings.ContainsAny(name, " \t") {
		return fmt.Errorf("invalid header %q (want \"Name: value\")", v)
	}
	if f.h == nil {
		f.h = http.Header{}
	}
	key := http.CanonicalHeaderKey(name)
	if f.defaults[key] {
		f.h.Del(key)
		delete(f.defaults, key)
	}
	f.h.Add(key, strings.TrimSpace(value))
	return nil
}

func (f *headerFlag) setDefault(name, value string) {
	if f.h == nil {
		f.h = http.Header{}
	}
	if f.defaults == nil {
		f.defaults = map[string]bool{}
	}
	key := http.CanonicalHeaderKey(name)
	f.h.Set(key, value)
	f.defaults[key] = true
}
