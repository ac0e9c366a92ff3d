package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jjenkins/parliament/internal/config"
	"github.com/jjenkins/parliament/internal/model"
)

const (
	defaultSourceTimeout = 60 * time.Second
	defaultSourceRetries = 3
	defaultSourceBackoff = 2 * time.Second
	sourceDateLayout     = "2006-01-02"
	reportDateLayout     = "02-01-2006"
)

// SittingSource fetches one sitting's raw record. A nil record with a nil
// error means nothing was held on that date.
type SittingSource interface {
	FetchSittingByDate(ctx context.Context, date time.Time) (*model.RawSitting, error)
}

var errNotFound = errors.New("not found")

// SourceClient handles communication with the record source API
type SourceClient struct {
	client         *http.Client
	baseURL        string
	maxRetries     int
	initialBackoff time.Duration
}

// NewSourceClient creates a new record source client
func NewSourceClient(cfg config.SourceConfig) *SourceClient {
	c := &SourceClient{
		client:         &http.Client{Timeout: cfg.Timeout},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
	}
	if c.client.Timeout <= 0 {
		c.client.Timeout = defaultSourceTimeout
	}
	if c.maxRetries <= 0 {
		c.maxRetries = defaultSourceRetries
	}
	if c.initialBackoff <= 0 {
		c.initialBackoff = defaultSourceBackoff
	}
	return c
}

// sittingResponse represents the API response for /sittings/{date}
type sittingResponse struct {
	Metadata struct {
		Date       string `json:"date"`
		SittingNo  int    `json:"sitting_no"`
		Parliament int    `json:"parliament"`
		SessionNo  int    `json:"session_no"`
		VolumeNo   int    `json:"volume_no"`
		Format     string `json:"format"`
	} `json:"metadata"`
	Sections []struct {
		Category     string       `json:"category"`
		SectionType  string       `json:"section_type"`
		Title        string       `json:"title"`
		ContentHTML  string       `json:"content_html"`
		ContentPlain string       `json:"content_plain"`
		Order        int          `json:"order"`
		SourceURL    string       `json:"source_url"`
		Speakers     []memberJSON `json:"speakers"`
	} `json:"sections"`
	Present []memberJSON `json:"present"`
	Absent  []memberJSON `json:"absent"`
}

type memberJSON struct {
	Name         string `json:"name"`
	Constituency string `json:"constituency"`
	Appointment  string `json:"appointment"`
}

// FetchSittingByDate retrieves the record of the sitting held on date
func (c *SourceClient) FetchSittingByDate(ctx context.Context, date time.Time) (*model.RawSitting, error) {
	url := fmt.Sprintf("%s/sittings/%s", c.baseURL, date.Format(sourceDateLayout))

	body, err := c.fetchWithRetry(ctx, url)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sitting %s: %w", date.Format(sourceDateLayout), err)
	}

	if len(bytes.TrimSpace(body)) == 0 || bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return nil, nil
	}

	var resp sittingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse sitting response: %w", err)
	}

	raw := &model.RawSitting{
		Meta: model.SittingMeta{
			Date:       parseSittingDate(resp.Metadata.Date, date),
			SittingNo:  resp.Metadata.SittingNo,
			Parliament: resp.Metadata.Parliament,
			SessionNo:  resp.Metadata.SessionNo,
			VolumeNo:   resp.Metadata.VolumeNo,
			Format:     resp.Metadata.Format,
		},
		Present: convertMembers(resp.Present),
		Absent:  convertMembers(resp.Absent),
	}

	raw.Sections = make([]model.RawSection, len(resp.Sections))
	for i, s := range resp.Sections {
		category := s.Category
		if category == "" {
			category = model.CategoryOther
		}
		raw.Sections[i] = model.RawSection{
			Category:     category,
			SectionType:  s.SectionType,
			Title:        s.Title,
			ContentHTML:  s.ContentHTML,
			ContentPlain: s.ContentPlain,
			Order:        s.Order,
			SourceURL:    s.SourceURL,
			Speakers:     convertMembers(s.Speakers),
		}
	}

	return raw, nil
}

func convertMembers(in []memberJSON) []model.RawMember {
	out := make([]model.RawMember, len(in))
	for i, m := range in {
		out[i] = model.RawMember{Name: m.Name, Constituency: m.Constituency, Appointment: m.Appointment}
	}
	return out
}

// ParseDate accepts a sitting date as DD-MM-YYYY or YYYY-MM-DD
func ParseDate(s string) (time.Time, error) {
	for _, layout := range []string{reportDateLayout, sourceDateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: expected DD-MM-YYYY or YYYY-MM-DD", s)
}

// parseSittingDate reads the metadata date and falls back to the requested date
func parseSittingDate(s string, fallback time.Time) time.Time {
	if t, err := ParseDate(s); err == nil {
		return t
	}
	return fallback
}

// fetchWithRetry performs an HTTP GET with exponential backoff retry logic.
// A 404 returns errNotFound without retrying.
func (c *SourceClient) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	backoff := c.initialBackoff

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()

		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, errNotFound
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (HTTP 429)")
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		default:
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}

// ReportURL renders the public report link of a sitting from a template whose
// %s verb receives the DD-MM-YYYY date
func ReportURL(template string, date time.Time) string {
	if template == "" {
		return ""
	}
	return fmt.Sprintf(template, date.Format(reportDateLayout))
}
