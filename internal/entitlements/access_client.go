package entitlements

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/courseworks/fulfillment-backend/pkg/config"
	"github.com/courseworks/fulfillment-backend/pkg/errors"
	"github.com/courseworks/fulfillment-backend/pkg/logger"
)

// AccessGranter pushes a course grant to the external member area.
type AccessGranter interface {
	GrantAccess(ctx context.Context, customerIdentifier, courseID string) error
}

type accessClient struct {
	baseURL  string
	apiToken string
	client   *http.Client
	logg     *logger.Logger
}

type grantRequest struct {
	CustomerIdentifier string `json:"customer_identifier"`
	CourseID           string `json:"course_id"`
}

// NewAccessClient returns a member-area client. When no base URL is
// configured the client is a no-op, so fulfillment can run without a member
// area attached.
func NewAccessClient(cfg config.MemberAreaConfig, logg *logger.Logger) AccessGranter {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return noopAccessClient{logg: logg}
	}
	return &accessClient{
		baseURL:  base,
		apiToken: cfg.APIToken,
		client:   &http.Client{Timeout: cfg.GrantTimeout},
		logg:     logg,
	}
}

func (c *accessClient) GrantAccess(ctx context.Context, customerIdentifier, courseID string) error {
	if customerIdentifier == "" {
		return errors.New(errors.CodeValidation, "customer identifier is required")
	}
	if courseID == "" {
		return errors.New(errors.CodeValidation, "course id is required")
	}

	body, err := json.Marshal(grantRequest{
		CustomerIdentifier: customerIdentifier,
		CourseID:           courseID,
	})
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "encoding grant request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/grants", bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "building grant request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "member area grant failed")
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusConflict:
		// Grant already exists upstream. Same terminal state.
		return nil
	default:
		return errors.New(errors.CodeDependency, fmt.Sprintf("member area grant returned status %d", resp.StatusCode))
	}
}

type noopAccessClient struct {
	logg *logger.Logger
}

func (n noopAccessClient) GrantAccess(ctx context.Context, customerIdentifier, courseID string) error {
	if n.logg != nil {
		n.logg.Info(ctx, fmt.Sprintf("member area not configured, skipping grant push for %s", courseID))
	}
	return nil
}
