package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/relstore/xschema/cache"
	"github.com/relstore/xschema/docstore"
	"github.com/relstore/xschema/report"
	"github.com/relstore/xschema/xconfig"
	"github.com/relstore/xschema/xschema"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func usage() {
	fmt.Fprintln(os.Stderr, `xschema CLI

Usage:
  xschema validate -schemas dir -instances dir [flags]

Flags:
  -schemas dir           directory of schema documents (required)
  -instances dir         directory of instance documents (required)
  -config path.yaml      primary_key provider/inline_provider configuration file
  -use-schemas a,b,c     restrict phase-0 pairing to these schema-ids
  -schema-id-path a,b,c  top-level keys checked for an explicit schema-id (default @schema,_schema,$schema)
  -guess-schema          fall back to validating against every candidate schema
  -continue-on-error     accumulate every issue instead of failing fast on the first
  -cache-dir dir         Key Cache directory (enables provider fetch caching)
  -cache-mode mode       warm-up|lazy-load|read-only|invalidate (default warm-up)
  -concurrency n         phase-1 worker cap (default GOMAXPROCS)
  -goccy                 decode JSON instances/schemas with goccy/go-json instead of encoding/json
  -v                     log progress to stderr`)
}

func run(args []string) int {
	if len(args) < 1 || args[0] != "validate" {
		usage()
		return report.ExitInternalError
	}

	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	var (
		schemasDir    string
		instancesDir  string
		configPath    string
		useSchemasCSV string
		idPathCSV     string
		guessSchema   bool
		continueOnErr bool
		cacheDir      string
		cacheModeStr  string
		concurrency   int
		goccy         bool
		verbose       bool
	)
	fs.StringVar(&schemasDir, "schemas", "", "directory of schema documents")
	fs.StringVar(&instancesDir, "instances", "", "directory of instance documents")
	fs.StringVar(&configPath, "config", "", "primary_key provider/inline_provider configuration file")
	fs.StringVar(&useSchemasCSV, "use-schemas", "", "comma-separated schema-ids to restrict pairing to")
	fs.StringVar(&idPathCSV, "schema-id-path", "", "comma-separated top-level keys checked for an explicit schema-id")
	fs.BoolVar(&guessSchema, "guess-schema", false, "fall back to validating against every candidate schema")
	fs.BoolVar(&continueOnErr, "continue-on-error", false, "accumulate every issue instead of failing fast")
	fs.StringVar(&cacheDir, "cache-dir", "", "Key Cache directory")
	fs.StringVar(&cacheModeStr, "cache-mode", "warm-up", "warm-up|lazy-load|read-only|invalidate")
	fs.IntVar(&concurrency, "concurrency", 0, "phase-1 worker cap (default GOMAXPROCS)")
	fs.BoolVar(&goccy, "goccy", false, "decode JSON with goccy/go-json")
	fs.BoolVar(&verbose, "v", false, "log progress to stderr")
	if err := fs.Parse(args[1:]); err != nil {
		return report.ExitInternalError
	}
	if schemasDir == "" || instancesDir == "" {
		fs.Usage()
		return report.ExitInternalError
	}

	cacheMode, err := parseCacheMode(cacheModeStr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return report.ExitInternalError
	}

	var pkConfig xconfig.PrimaryKeyConfig
	if configPath != "" {
		cfg, err := xconfig.Load(configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return report.ExitInternalError
		}
		pkConfig = cfg.PrimaryKey
	}

	loader := docstore.NewLoader()
	if goccy {
		loader = docstore.NewGoccyLoader()
	}

	schemaDocs, loadIssues := loader.LoadSchemas(schemasDir)
	if len(loadIssues) > 0 {
		printReport(report.FromIssues(loadIssues))
		return report.ExitInternalError
	}
	instanceDocs, loadIssues := loader.LoadInstances(instancesDir)
	if len(loadIssues) > 0 {
		printReport(report.FromIssues(loadIssues))
		return report.ExitInternalError
	}

	var logf func(string, ...any)
	if verbose {
		logf = func(format string, a ...any) { fmt.Fprintf(os.Stderr, format+"\n", a...) }
	}

	v, err := xschema.New(xschema.Config{
		ContinueOnError:  continueOnErr,
		UseSchemas:       splitCSV(useSchemasCSV),
		SchemaIDPath:     splitCSV(idPathCSV),
		GuessSchema:      guessSchema,
		CachePolicy:      cacheMode,
		CacheDir:         cacheDir,
		Concurrency:      concurrency,
		PrimaryKeyConfig: pkConfig,
		Logf:             logf,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return report.ExitInternalError
	}
	defer v.Close()

	if issues := v.AddSchemas(schemaDocs); len(issues) > 0 {
		printReport(report.FromIssues(issues))
		return report.ExitValidationFail
	}

	r, err := v.Run(context.Background(), instanceDocs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return report.ExitInternalError
	}
	printReport(*r)
	return r.ExitCode()
}

func printReport(r report.Report) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(r)
}

func parseCacheMode(s string) (cache.Mode, error) {
	switch s {
	case "warm-up":
		return cache.WarmUp, nil
	case "lazy-load":
		return cache.LazyLoad, nil
	case "read-only":
		return cache.ReadOnly, nil
	case "invalidate":
		return cache.Invalidate, nil
	default:
		return 0, fmt.Errorf("unknown -cache-mode %q", s)
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
