// Package provider is the Provider Fetcher (spec.md §4.H): for a PrimaryKey
// declaration carrying a `provider` list, it fetches the set of valid
// primary-key values for a given schema-id from each provider URL prefix,
// over text/uri-list or text/csv.
//
// Grounded on the original implementation's warmUpCaches (pk_check.py):
// compose one URL per (provider, schema_id) pair, GET it with the
// configured Accept header, and treat a fetch failure as a logged, non-fatal
// condition rather than aborting the run. The concrete transport —
// concurrency cap via errgroup+semaphore, exponential backoff with 4xx
// treated as permanent — is this expansion's own addition (spec.md §4.H
// retry paragraph), grounded on golang.org/x/sync and cenkalti/backoff
// appearing across the retrieved pack's go.mod graphs.
package provider

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/relstore/xschema/xtypes"
)

// FetchedTuple is one primary-key value retrieved from a provider, together
// with the URL it came from (the CacheEntry's origin_key).
type FetchedTuple struct {
	Tuple     xtypes.KeyTuple
	SourceURL string
}

// Fetcher retrieves FetchedTuples for a PrimaryKey declaration's provider
// list, bounded by Concurrency concurrent HTTP requests.
type Fetcher struct {
	Client      *http.Client
	Concurrency int
	MaxRetries  uint64
}

// New returns a Fetcher with the defaults spec.md §5 names: an 8-way
// concurrency cap and a per-request timeout.
func New() *Fetcher {
	return &Fetcher{
		Client:      &http.Client{Timeout: 30 * time.Second},
		Concurrency: 8,
		MaxRetries:  3,
	}
}

// FetchAll fetches tuples for every schema-id in schemaIDs concurrently,
// bounded by f.Concurrency, and returns them grouped by schema-id.
// A per-URL fetch failure becomes a CodeProviderFetchError Issue; it never
// aborts the other in-flight fetches.
func (f *Fetcher) FetchAll(ctx context.Context, cfg *xtypes.ProviderConfig, schemaIDs []string) (map[string][]FetchedTuple, xtypes.Issues) {
	sem := semaphore.NewWeighted(int64(f.concurrency()))
	g, gctx := errgroup.WithContext(ctx)

	results := make([][]FetchedTuple, len(schemaIDs))
	issuesPerSchema := make([]xtypes.Issues, len(schemaIDs))

	for i, schemaID := range schemaIDs {
		i, schemaID := i, schemaID
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			tuples, issues := f.FetchSchema(gctx, cfg, schemaID)
			results[i] = tuples
			issuesPerSchema[i] = issues
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, xtypes.Issues{{Code: xtypes.CodeProviderFetchError, Message: err.Error()}}
	}

	out := make(map[string][]FetchedTuple, len(schemaIDs))
	var allIssues xtypes.Issues
	for i, schemaID := range schemaIDs {
		out[schemaID] = results[i]
		allIssues = xtypes.AppendIssues(allIssues, issuesPerSchema[i]...)
	}
	return out, allIssues
}

// FetchSchema fetches tuples for one schema-id from every provider URL
// prefix in cfg.
func (f *Fetcher) FetchSchema(ctx context.Context, cfg *xtypes.ProviderConfig, schemaID string) ([]FetchedTuple, xtypes.Issues) {
	var tuples []FetchedTuple
	var issues xtypes.Issues

	accept := cfg.Accept
	if accept == "" {
		accept = "text/uri-list"
	}

	for _, base := range cfg.Providers {
		url := composeURL(base, cfg.SchemaPrefix, schemaID)
		body, err := f.fetchURL(ctx, url, accept)
		if err != nil {
			issues = append(issues, xtypes.Issue{
				SchemaID: schemaID,
				Code:     xtypes.CodeProviderFetchError,
				Message:  fmt.Sprintf("fetching %s: %v", url, err),
			})
			continue
		}
		for _, v := range parseBody(accept, body) {
			tuples = append(tuples, FetchedTuple{
				Tuple:     xtypes.NewKeyTuple([]any{v}),
				SourceURL: url,
			})
		}
	}
	return tuples, issues
}

func (f *Fetcher) concurrency() int {
	if f.Concurrency > 0 {
		return f.Concurrency
	}
	return 8
}

// composeURL implements spec.md §4.H's formula literally: the provider
// base plus whatever of schema_id falls after schema_prefix, or the whole
// schema_id verbatim when the prefix doesn't match.
func composeURL(provider, schemaPrefix, schemaID string) string {
	if schemaPrefix != "" && strings.HasPrefix(schemaID, schemaPrefix) {
		return provider + schemaID[len(schemaPrefix):]
	}
	return provider + schemaID
}

func (f *Fetcher) fetchURL(ctx context.Context, url, accept string) ([]byte, error) {
	var body []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", accept)

		resp, err := f.Client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(fmt.Errorf("%s returned %s", url, resp.Status))
		}
		if resp.StatusCode >= 300 {
			return fmt.Errorf("%s returned %s", url, resp.Status)
		}

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		body = b
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), f.maxRetries())
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

func (f *Fetcher) maxRetries() uint64 {
	if f.MaxRetries > 0 {
		return f.MaxRetries
	}
	return 3
}

// parseBody parses a provider response per its Accept content type:
// text/csv takes the first column of every row; anything else is treated
// as text/uri-list, one URI per non-comment, non-blank line.
func parseBody(accept string, body []byte) []string {
	if strings.Contains(accept, "csv") {
		return parseCSV(body)
	}
	return parseURIList(body)
}

func parseURIList(body []byte) []string {
	var out []string
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func parseCSV(body []byte) []string {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	var out []string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		if len(record) > 0 {
			out = append(out, strings.TrimSpace(record[0]))
		}
	}
	return out
}
