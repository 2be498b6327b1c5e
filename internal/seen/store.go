// Package seen records which battles have already been notified.
//
// The feed reports a snapshot of open battles, so a battle id that shows up
// again means the battle is still open, not that it is new. A Store keeps
// each id for as long as its retention allows and answers, atomically,
// whether an id is being seen for the first time.
package seen

import "context"

// Store is the set of already-notified battle ids.
type Store interface {
	// MarkSeen inserts battleID and reports true if it was not already
	// present.
	MarkSeen(ctx context.Context, battleID string) (bool, error)
}
