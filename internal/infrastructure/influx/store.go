package influx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dreschagin/jenkins-collector/internal/domain/entity"
	"github.com/dreschagin/jenkins-collector/pkg/logger"
)

// StoreConfig holds configuration for the InfluxDB store.
type StoreConfig struct {
	BaseURL        string
	Database       string
	Measurement    string
	RequestTimeout time.Duration
}

// Store talks to the InfluxDB 1.x HTTP API: line-protocol writes to
// /write and InfluxQL duplicate lookups against /query. It implements
// both the RecordWriter and DuplicateChecker ports.
type Store struct {
	baseURL     string
	database    string
	measurement string
	encoder     Encoder
	client      *http.Client
	logger      *logger.Logger
}

// NewStore creates a new InfluxDB store.
func NewStore(cfg StoreConfig, encoder Encoder, log *logger.Logger) (*Store, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("influx base URL is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("influx database is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	return &Store{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		database:    cfg.Database,
		measurement: cfg.Measurement,
		encoder:     encoder,
		client:      &http.Client{Timeout: cfg.RequestTimeout},
		logger:      log,
	}, nil
}

// WriteRecord encodes the record and posts it to the write endpoint.
func (s *Store) WriteRecord(ctx context.Context, record entity.BuildRecord) error {
	line := s.encoder.Encode(record)
	endpoint := fmt.Sprintf("%s/write?db=%s", s.baseURL, url.QueryEscape(s.database))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(line))
	if err != nil {
		return fmt.Errorf("build write request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("write to influx: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("influx write returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}

// queryResponse mirrors the structured InfluxQL query result. A non-empty
// series list means the query returned rows.
type queryResponse struct {
	Results []struct {
		Series []struct {
			Name string `json:"name"`
		} `json:"series"`
		Err string `json:"error"`
	} `json:"results"`
}

// AlreadyRecorded queries the store for the exact identity tuple and
// reports whether at least one row came back. Any transport, decode or
// query error yields (false, err): the caller writes anyway and counts
// the failure separately from genuine duplicates.
func (s *Store) AlreadyRecorded(ctx context.Context, identity entity.RecordIdentity) (bool, error) {
	query := s.duplicateQuery(identity)
	endpoint := fmt.Sprintf("%s/query?db=%s&q=%s",
		s.baseURL, url.QueryEscape(s.database), url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("build query request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("query influx: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("influx query returned %d", resp.StatusCode)
	}

	var decoded queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return false, fmt.Errorf("decode query response: %w", err)
	}

	for _, result := range decoded.Results {
		if result.Err != "" {
			return false, fmt.Errorf("influx query error: %s", result.Err)
		}
		if len(result.Series) > 0 {
			return true, nil
		}
	}

	return false, nil
}

// duplicateQuery builds the InfluxQL lookup scoped to the identity tuple.
// The server clause is only present in multi-instance deployments.
func (s *Store) duplicateQuery(identity entity.RecordIdentity) string {
	var query strings.Builder

	query.WriteString("SELECT build_number FROM ")
	query.WriteString(s.measurement)
	query.WriteString(" WHERE project_name='")
	query.WriteString(EscapeQueryValue(identity.ProjectName))
	query.WriteString("' AND project_path='")
	query.WriteString(EscapeQueryValue(identity.ProjectPath))
	query.WriteString("' AND view='")
	query.WriteString(EscapeQueryValue(identity.View))
	query.WriteString("'")

	if identity.Server != "" {
		query.WriteString(" AND server='")
		query.WriteString(EscapeQueryValue(identity.Server))
		query.WriteString("'")
	}

	query.WriteString(fmt.Sprintf(" AND build_number=%d", identity.BuildNumber))

	return query.String()
}

// EscapeQueryValue escapes backslash and single-quote characters for safe
// inclusion in a single-quoted InfluxQL string literal.
func EscapeQueryValue(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `'`, `\'`)
	return value
}
