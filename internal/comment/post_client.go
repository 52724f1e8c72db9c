package comment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"forumpipe/internal/config"
	"forumpipe/internal/constants"
	"forumpipe/internal/logger"
	"forumpipe/pkg/circuitbreaker"
	"forumpipe/pkg/tracing"
)

var errPostNotFound = errors.New("post not found")

// PostClient resolves the author of a post through the post service's public API.
type PostClient struct {
	baseURL string
	client  *http.Client
	cb      *circuitbreaker.Wrapper
	logger  logger.Logger
}

func NewPostClient(cfg config.PostClientConfig, cbCfg config.CircuitBreakerConfig, log logger.Logger) *PostClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}

	c := &PostClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  log,
	}

	if cbCfg.Enabled {
		breaker := circuitbreaker.FromConfig("post-client", cbCfg)
		breaker.IsSuccessful = func(err error) bool {
			return err == nil || errors.Is(err, errPostNotFound)
		}
		c.cb = circuitbreaker.NewWrapper(breaker)
	}
	return c
}

// AuthorID returns the author of postID, or an empty string when the post service cannot answer.
// Comment creation proceeds either way; the notification side skips events without a recipient.
func (c *PostClient) AuthorID(ctx context.Context, postID int64) string {
	var (
		authorID string
		err      error
	)
	if c.cb != nil {
		var result interface{}
		result, err = c.cb.Execute(ctx, func() (interface{}, error) {
			return c.fetchAuthorID(ctx, postID)
		})
		if err == nil {
			authorID, _ = result.(string)
		}
	} else {
		authorID, err = c.fetchAuthorID(ctx, postID)
	}

	if err != nil {
		c.logger.WarnwCtx(ctx, "Failed to resolve post author",
			"post_id", postID,
			"error", err,
		)
		return ""
	}
	return authorID
}

func (c *PostClient) fetchAuthorID(ctx context.Context, postID int64) (string, error) {
	url := c.baseURL + "/api/v1/posts/" + strconv.FormatInt(postID, 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	tracing.InjectHTTPHeaders(ctx, req.Header)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %d", errPostNotFound, postID)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("post service returned status %d", resp.StatusCode)
	}

	var body struct {
		AuthorID string `json:"authorId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return body.AuthorID, nil
}
