package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/notification-service/internal/config"
)

// Identity is one entry from the remote identity service.
type Identity struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Tenant string `json:"tenant"`
	Role   string `json:"role"`
}

// Client resolves tenant recipients against the remote identity service.
// Lookups are recomputed per call; there is no cache.
type Client struct {
	httpClient *http.Client
	baseURL    string
	fallback   string
	logger     *zap.Logger
}

// NewClient builds a directory client with a bounded request timeout.
func NewClient(cfg config.DirectoryConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		fallback:   cfg.FallbackEmail,
		logger:     logger,
	}
}

// ManagersForTenant returns the manager emails of a tenant. It never fails:
// any remote error, a non-2xx response, or an empty result yields the single
// fallback sentinel so every log event still produces a notification.
func (c *Client) ManagersForTenant(ctx context.Context, tenant string) []string {
	endpoint := fmt.Sprintf("%s/api/identities?tenant=%s&role=MANAGER", c.baseURL, url.QueryEscape(tenant))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return c.fallbackFor(tenant, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fallbackFor(tenant, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fallbackFor(tenant, fmt.Errorf("directory responded with status %d", resp.StatusCode))
	}

	var identities []Identity
	if err := json.NewDecoder(resp.Body).Decode(&identities); err != nil {
		return c.fallbackFor(tenant, err)
	}

	emails := make([]string, 0, len(identities))
	for _, identity := range identities {
		if identity.Email != "" {
			emails = append(emails, identity.Email)
		}
	}
	if len(emails) == 0 {
		return c.fallbackFor(tenant, fmt.Errorf("directory returned no manager identities"))
	}
	return emails
}

// FallbackEmail exposes the configured sentinel recipient.
func (c *Client) FallbackEmail() string {
	return c.fallback
}

func (c *Client) fallbackFor(tenant string, err error) []string {
	c.logger.Warn("directory lookup failed; using fallback recipient",
		zap.String("tenant", tenant),
		zap.String("fallback", c.fallback),
		zap.Error(err))
	return []string{c.fallback}
}
