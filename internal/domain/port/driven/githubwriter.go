package driven

import "context"

// CheckSuiteRerunner re-requests a check suite so GitHub runs it again.
type CheckSuiteRerunner interface {
	RerequestCheckSuite(ctx context.Context, repoFullName string, checkSuiteID int64) error
}

// GitHubWriter defines the driven port for GitHub write operations.
// It is kept separate from GitHubClient (read operations).
type GitHubWriter interface {
	CheckSuiteRerunner

	// ValidateToken verifies the token and returns the authenticated login.
	ValidateToken(ctx context.Context, token string) (string, error)
}
