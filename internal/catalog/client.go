// Package catalog is the remote limit catalog consulted when the reference store has no limit.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/coa-verifier/internal/common"
	"github.com/joseph-ayodele/coa-verifier/internal/entity"
)

const (
	lookupPath = "/api/pesticides/"
	// maxBodyBytes caps a catalog response.
	maxBodyBytes = 1 << 20
)

// Client queries the catalog over HTTP. Each lookup is a single request with no retry.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// entry is one element of the catalog response array.
type entry struct {
	Food                 string      `json:"food_name"`
	MaxResidueLimit      json.Number `json:"max_residue_limit"`
	ConditionCode        string      `json:"condition_code_symbol"`
	ConditionDescription string      `json:"condition_code_description"`
}

// Lookup returns the first catalog limit for (substance, food).
func (c *Client) Lookup(ctx context.Context, substance, food string) (entity.ReferenceLimit, error) {
	reqID := uuid.New().String()
	start := time.Now()

	q := url.Values{}
	q.Set("pesticide", substance)
	q.Set("food", food)
	target := c.BaseURL + lookupPath + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return entity.ReferenceLimit{}, fmt.Errorf("%w: build request: %v", common.ErrCatalogUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Info("catalog.http.request", "req_id", reqID, "substance", substance, "food", food)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.logger.Warn("catalog.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return entity.ReferenceLimit{}, fmt.Errorf("%w: %v", common.ErrCatalogUnavailable, err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Warn("catalog.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	c.logger.Info("catalog.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if err != nil {
		return entity.ReferenceLimit{}, fmt.Errorf("%w: read body: %v", common.ErrCatalogUnavailable, err)
	}
	if len(raw) > maxBodyBytes {
		return entity.ReferenceLimit{}, fmt.Errorf("%w: response exceeds %d bytes", common.ErrCatalogUnavailable, maxBodyBytes)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return entity.ReferenceLimit{}, common.ErrNotFound
	case resp.StatusCode/100 != 2:
		return entity.ReferenceLimit{}, fmt.Errorf("%w: non-2xx status: %d", common.ErrCatalogUnavailable, resp.StatusCode)
	}

	if err := validateResponse(raw); err != nil {
		c.logger.Warn("catalog.http.invalid_body", "req_id", reqID, "error", err)
		return entity.ReferenceLimit{}, fmt.Errorf("%w: %v", common.ErrCatalogUnavailable, err)
	}

	var entries []entry
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&entries); err != nil {
		return entity.ReferenceLimit{}, fmt.Errorf("%w: decode: %v", common.ErrCatalogUnavailable, err)
	}
	if len(entries) == 0 {
		return entity.ReferenceLimit{}, common.ErrNotFound
	}
	return entries[0].toLimit(substance, food)
}

func (e entry) toLimit(substance, food string) (entity.ReferenceLimit, error) {
	limit, err := decimal.NewFromString(e.MaxResidueLimit.String())
	if err != nil {
		return entity.ReferenceLimit{}, fmt.Errorf("%w: max_residue_limit %q: %v", common.ErrCatalogUnavailable, e.MaxResidueLimit, err)
	}
	ref := entity.ReferenceLimit{Substance: substance, Food: food, Limit: limit}
	if e.Food != "" {
		ref.Food = e.Food
	}
	if code := strings.TrimSpace(e.ConditionCode); code != "" {
		ref.ConditionCode = &code
		if desc := strings.TrimSpace(e.ConditionDescription); desc != "" {
			ref.ConditionDescription = &desc
		}
	}
	return ref, nil
}
