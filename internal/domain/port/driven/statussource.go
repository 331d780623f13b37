// Package driven defines secondary port interfaces for external adapters.
package driven

import "github.com/ericfisherdev/checkpanel/internal/domain/model"

// Subscription represents "deliver future CombinedStatus updates for a ref to
// a callback". Dispose blocks until any in-flight delivery has returned; no
// callback runs after Dispose returns. Dispose is safe to call more than once.
type Subscription interface {
	Dispose()
}

// StatusSource is the commit-status store a panel reads from.
type StatusSource interface {
	// GetCachedStatus returns the last known status for the ref, or nil when
	// nothing has been fetched yet. It never blocks on the network.
	GetCachedStatus(repo model.Repository, ref string) *model.CombinedStatus

	// Subscribe registers callback for future updates of the ref. The callback
	// may receive nil when the ref has no checks.
	Subscribe(repo model.Repository, ref string, callback func(*model.CombinedStatus)) Subscription
}
