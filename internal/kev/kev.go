// Package kev ingests the CISA Known Exploited Vulnerabilities catalog
// and prepares entries for embedding into the glossary store.
package kev

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"personabrief/internal/core"
	"personabrief/internal/logger"
)

// DefaultFeedURL is the public CISA KEV catalog feed.
const DefaultFeedURL = "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json"

// catalog mirrors the feed's top-level JSON shape.
type catalog struct {
	Title           string          `json:"title"`
	CatalogVersion  string          `json:"catalogVersion"`
	DateReleased    string          `json:"dateReleased"`
	Count           int             `json:"count"`
	Vulnerabilities []core.KEVEntry `json:"vulnerabilities"`
}

// SeenStore tracks which catalog entries were already ingested.
type SeenStore interface {
	HasKEVHash(hash string) (bool, error)
	MarkKEVHash(hash, cveID string) error
}

// Fetcher downloads and filters the KEV catalog.
type Fetcher struct {
	client  *http.Client
	feedURL string
}

// NewFetcher creates a fetcher for the given feed URL (empty for default).
func NewFetcher(feedURL string) *Fetcher {
	if feedURL == "" {
		feedURL = DefaultFeedURL
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		feedURL: feedURL,
	}
}

// Fetch downloads the full catalog.
func (f *Fetcher) Fetch(ctx context.Context) ([]core.KEVEntry, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", f.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "personabrief KEV ingest/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch KEV catalog: %v", core.ErrServiceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: KEV feed returned status %d", core.ErrServiceUnavailable, resp.StatusCode)
	}

	var cat catalog
	if err := json.NewDecoder(resp.Body).Decode(&cat); err != nil {
		return nil, fmt.Errorf("failed to parse KEV catalog: %w", err)
	}

	logger.Info("fetched KEV catalog", "version", cat.CatalogVersion, "count", len(cat.Vulnerabilities))
	return cat.Vulnerabilities, nil
}

// FetchNew downloads the catalog and returns only entries not seen before,
// stamped with the scrape date and marked seen in the store.
func (f *Fetcher) FetchNew(ctx context.Context, seen SeenStore) ([]core.KEVEntry, error) {
	entries, err := f.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	today := time.Now().UTC().Format("2006-01-02")
	var fresh []core.KEVEntry
	for _, entry := range entries {
		hash := ContentHash(entry)
		already, err := seen.HasKEVHash(hash)
		if err != nil {
			return nil, err
		}
		if already {
			continue
		}
		if err := seen.MarkKEVHash(hash, entry.CVEID); err != nil {
			return nil, err
		}
		entry.DateScraped = today
		fresh = append(fresh, entry)
	}

	logger.Info("filtered KEV catalog", "total", len(entries), "new", len(fresh))
	return fresh, nil
}

// ContentHash identifies an entry by its stable identity fields, so a
// re-published catalog does not re-ingest the same vulnerability.
func ContentHash(entry core.KEVEntry) string {
	sum := sha256.Sum256([]byte(entry.CVEID + entry.VendorProject + entry.Product))
	return hex.EncodeToString(sum[:])
}

// EmbeddingText flattens an entry into one prose block suitable for
// vector embedding and glossary retrieval.
func EmbeddingText(entry core.KEVEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s in %s %s.", entry.CVEID, entry.VulnerabilityName, entry.VendorProject, entry.Product)
	if entry.ShortDescription != "" {
		fmt.Fprintf(&b, " %s", entry.ShortDescription)
	}
	if entry.RequiredAction != "" {
		fmt.Fprintf(&b, " Required action: %s", entry.RequiredAction)
	}
	if entry.KnownRansomware != "" && !strings.EqualFold(entry.KnownRansomware, "unknown") {
		fmt.Fprintf(&b, " Known ransomware campaign use: %s.", entry.KnownRansomware)
	}
	if entry.DueDate != "" {
		fmt.Fprintf(&b, " Remediation due %s.", entry.DueDate)
	}
	return b.String()
}

// Enrich fills the EmbeddingText field on each entry in place.
func Enrich(entries []core.KEVEntry) []core.KEVEntry {
	for i := range entries {
		entries[i].EmbeddingText = EmbeddingText(entries[i])
	}
	return entries
}
