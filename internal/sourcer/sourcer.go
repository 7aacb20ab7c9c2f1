package sourcer

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/atasun/UltraDialer-sub011/internal/model"
	"github.com/atasun/UltraDialer-sub011/internal/window"
	"github.com/ghodss/yaml"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schema string

// ErrInvalidDocument is returned when a fixture fails schema or schedule validation.
var ErrInvalidDocument = errors.New("invalid document")

// Source is a campaign fixture: one campaign and its call records.
type Source struct {
	Campaign model.Campaign     `json:"campaign" yaml:"campaign"`
	Calls    []model.CallRecord `json:"calls" yaml:"calls"`
}

// Fetcher defines the interface for fetching content from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// CompositeFetcher is a fetcher that can handle multiple schemes.
type CompositeFetcher struct {
	fetchers map[string]Fetcher
}

// NewCompositeFetcher creates a new CompositeFetcher.
func NewCompositeFetcher() *CompositeFetcher {
	return &CompositeFetcher{
		fetchers: make(map[string]Fetcher),
	}
}

// AddFetcher adds a new fetcher for a given scheme.
func (f *CompositeFetcher) AddFetcher(scheme string, fetcher Fetcher) {
	f.fetchers[scheme] = fetcher
}

// Fetch fetches the content of a URL. A plain path is treated as a file URL.
func (f *CompositeFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse url %s: %w", rawURL, err)
	}

	scheme := u.Scheme
	if scheme == "" {
		scheme = "file"
	}
	fetcher, ok := f.fetchers[scheme]
	if !ok {
		return nil, "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}

	return fetcher.Fetch(ctx, rawURL)
}

// HTTPFetcher is an implementation of Fetcher that fetches content over HTTP.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a new HTTPFetcher.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	return &HTTPFetcher{
		client: client,
	}
}

// Fetch fetches the content of a URL and returns it with its ETag, its
// Last-Modified header or a content hash.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request for %s: %w", url, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch url %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to fetch url %s: status code %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	// Prefer ETag, but fall back to Last-Modified.
	var state string
	if etag := resp.Header.Get("ETag"); etag != "" {
		state = etag
	} else if lastModified := resp.Header.Get("Last-Modified"); lastModified != "" {
		state = lastModified
	} else {
		state = fmt.Sprintf("%x", sha256.Sum256(body))
	}

	return body, state, nil
}

// FileFetcher is an implementation of Fetcher that reads local files.
type FileFetcher struct{}

// NewFileFetcher creates a new FileFetcher.
func NewFileFetcher() *FileFetcher {
	return &FileFetcher{}
}

// Fetch reads the file named by a file URL or plain path.
func (f *FileFetcher) Fetch(_ context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse url %s: %w", rawURL, err)
	}

	data, err := os.ReadFile(u.Path)
	if err != nil {
		return nil, "", err
	}

	return data, fmt.Sprintf("%x", sha256.Sum256(data)), nil
}

// Parser defines the interface for parsing content into a Source.
type Parser interface {
	Parse(url string, data []byte) (*Source, error)
}

// YAMLParser parses YAML fixtures and validates them against the embedded schema.
type YAMLParser struct {
	schemaLoader gojsonschema.JSONLoader
}

// NewYAMLParser creates a new YAMLParser.
func NewYAMLParser() *YAMLParser {
	return &YAMLParser{
		schemaLoader: gojsonschema.NewStringLoader(schema),
	}
}

// Parse validates and decodes a YAML fixture, filling in defaults.
func (p *YAMLParser) Parse(rawURL string, data []byte) (*Source, error) {
	// Convert YAML to JSON, as gojsonschema only works with JSON
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to convert yaml to json: %w", err)
	}

	result, err := gojsonschema.Validate(p.schemaLoader, gojsonschema.NewBytesLoader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to validate document: %w", err)
	}
	if !result.Valid() {
		descs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descs = append(descs, desc.String())
		}
		return nil, fmt.Errorf("%w: '%s': %s", ErrInvalidDocument, rawURL, strings.Join(descs, "; "))
	}

	var s Source
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	if err := window.Validate(&s.Campaign); err != nil {
		return nil, fmt.Errorf("%w: '%s': %w", ErrInvalidDocument, rawURL, err)
	}

	fillDefaults(rawURL, &s)
	return &s, nil
}

func fillDefaults(rawURL string, s *Source) {
	// If the campaign isn't specified, we'll derive it from the filename.
	if s.Campaign.ID == "" {
		base := path.Base(rawURL)
		if u, err := url.Parse(rawURL); err == nil {
			base = path.Base(u.Path)
		}
		// spring-drive.yaml -> spring-drive
		s.Campaign.ID = strings.ReplaceAll(strings.TrimSuffix(strings.TrimSuffix(base, ".yaml"), ".yml"), ".", "-")
	}
	if s.Campaign.Name == "" {
		s.Campaign.Name = s.Campaign.ID
	}
	if s.Campaign.Status == "" {
		s.Campaign.Status = model.CampaignDraft
	}

	for i := range s.Calls {
		if s.Calls[i].ID == "" {
			s.Calls[i].ID = uuid.NewString()
		}
		if s.Calls[i].Status == "" {
			s.Calls[i].Status = model.CallPending
		}
		s.Calls[i].CampaignID = s.Campaign.ID
	}
}

// Sourcer fetches and parses campaign fixtures.
type Sourcer interface {
	Source(ctx context.Context, url string) (*Source, string, error)
}

// sourcer is the concrete implementation of the Sourcer interface.
type sourcer struct {
	fetcher Fetcher
	parser  Parser
}

// NewSourcer creates a new Sourcer.
func NewSourcer(fetcher Fetcher, parser Parser) Sourcer {
	return &sourcer{
		fetcher: fetcher,
		parser:  parser,
	}
}

// Source fetches and parses a fixture from a URL.
func (s *sourcer) Source(ctx context.Context, url string) (*Source, string, error) {
	data, state, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, "", err
	}

	source, err := s.parser.Parse(url, data)
	if err != nil {
		return nil, "", err
	}
	return source, state, nil
}
