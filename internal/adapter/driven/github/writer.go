// Package github implements the GitHubClient and GitHubWriter ports using the go-github library.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/checkpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitHubWriter = (*Client)(nil)

// ValidateToken verifies that the given GitHub personal access token is valid
// and returns the authenticated username on success. It creates a one-shot
// client with the provided token to avoid mutating the receiver's state.
func (c *Client) ValidateToken(ctx context.Context, token string) (string, error) {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	tempClient := gh.NewClient(httpClient).WithAuthToken(token)
	tempClient.BaseURL = c.gh.BaseURL
	user, _, err := tempClient.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("token validation failed: %w", err)
	}
	return user.GetLogin(), nil
}

// RerequestCheckSuite asks GitHub to run every check in the suite again.
func (c *Client) RerequestCheckSuite(ctx context.Context, repoFullName string, checkSuiteID int64) error {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return err
	}

	resp, err := c.gh.Checks.ReRequestCheckSuite(ctx, owner, repo, checkSuiteID)
	if err != nil {
		var ghErr *gh.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusForbidden {
			return fmt.Errorf("token lacks checks:write on %s: %w", repoFullName, err)
		}
		return fmt.Errorf("rerequesting check suite %d on %s: %w", checkSuiteID, repoFullName, err)
	}

	logRateLimit(resp, repoFullName+"/check-suite-rerequest", 0, 1)

	return nil
}
