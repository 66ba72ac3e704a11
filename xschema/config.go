package xschema

import (
	"runtime"

	"github.com/relstore/xschema/cache"
	"github.com/relstore/xschema/provider"
	"github.com/relstore/xschema/registry"
	"github.com/relstore/xschema/xconfig"
)

// defaultSchemaIDPath is the default schema_id_path: the first of these
// top-level instance keys that is present and a string wins (spec.md §4.F
// phase 0.2).
var defaultSchemaIDPath = []string{"@schema", "_schema", "$schema"}

// Config carries every knob spec.md §4.F's phase 0 and §5 name.
type Config struct {
	// ContinueOnError accumulates every Issue across the run instead of
	// returning the first one encountered (spec.md §7).
	ContinueOnError bool

	// UseSchemas restricts schema pairing to this list of schema-ids. Nil
	// means every loaded schema is a candidate.
	UseSchemas []string

	// SchemaIDPath overrides defaultSchemaIDPath.
	SchemaIDPath []string

	// GuessSchema, when set, standard-validates an unpaired instance
	// against every candidate schema; every schema it validates under
	// participates in phase 2 (spec.md §4.F phase 0.3).
	GuessSchema bool

	// CachePolicy selects one of the Key Cache's four modes (spec.md §4.G).
	// Zero value is cache.WarmUp.
	CachePolicy cache.Mode

	// CacheDir is the Key Cache's backing directory. Empty disables the
	// cache: no provider tuples are ever persisted or reused across runs.
	CacheDir string

	// Concurrency bounds phase 1's worker pool (spec.md §5). Zero defaults
	// to runtime.GOMAXPROCS(0).
	Concurrency int

	// Registry overrides the extension keyword catalogue. Nil defaults to
	// registry.Default().
	Registry registry.Registry

	// PrimaryKeyConfig carries the primary_key provider/inline_provider
	// settings read from the YAML configuration file (spec.md §6.C).
	PrimaryKeyConfig xconfig.PrimaryKeyConfig

	// Fetcher performs provider HTTP fetches. Nil defaults to provider.New().
	Fetcher *provider.Fetcher

	// Logf receives internal diagnostics: run start and finish, the
	// fail-fast notice, and Key Cache write failures. Provider retries and
	// traversal warnings are not reported through it. Nil means no
	// diagnostics are surfaced — the caller still sees every outcome
	// through the returned Issues; this hook is purely observational.
	Logf func(format string, args ...any)
}

func (c Config) schemaIDPath() []string {
	if len(c.SchemaIDPath) > 0 {
		return c.SchemaIDPath
	}
	return defaultSchemaIDPath
}

func (c Config) concurrency() int {
	if c.Concurrency > 0 {
		return c.Concurrency
	}
	return runtime.GOMAXPROCS(0)
}

func (c Config) registry() registry.Registry {
	if c.Registry != nil {
		return c.Registry
	}
	return registry.Default()
}

func (c Config) fetcher() *provider.Fetcher {
	if c.Fetcher != nil {
		return c.Fetcher
	}
	return provider.New()
}

func (c Config) logf(format string, args ...any) {
	if c.Logf != nil {
		c.Logf(format, args...)
	}
}
