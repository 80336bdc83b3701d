package models

// SyncStatus tracks whether a local record matches the last known remote state.
type SyncStatus string

const (
	// SyncPending means the local write has not been confirmed remotely yet,
	// or the record was edited after a previous successful sync.
	SyncPending SyncStatus = "pending"
	// SyncSynced means local state matches the last known-good remote state.
	SyncSynced SyncStatus = "synced"
	// SyncError means the last push attempt failed; the record stays
	// queryable and retryable.
	SyncError SyncStatus = "error"
)

// IsValidSyncStatus checks if a sync status is valid
func IsValidSyncStatus(s SyncStatus) bool {
	switch s {
	case SyncPending, SyncSynced, SyncError:
		return true
	default:
		return false
	}
}

// Envelope carries the synchronization bookkeeping fields shared by every
// locally-stored entity. LocalID is the primary key for the record's local
// lifetime; RemoteID is assigned by the server on first successful push.
type Envelope struct {
	LocalID    string     `json:"localId" bson:"local_id"`
	RemoteID   string     `json:"id,omitempty" bson:"remote_id,omitempty"`
	SyncStatus SyncStatus `json:"syncStatus" bson:"sync_status"`
	Deleted    bool       `json:"deleted" bson:"deleted"`
}
