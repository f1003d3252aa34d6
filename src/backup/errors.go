package backup

import "fmt"

// PreconditionError is a fatal pre-flight failure: nothing remote has been
// mutated yet, so no cleanup obligation exists.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Reason
}

// SnapshotError records a failed snapshot creation. It does not abort the
// run; cleanup still happens because a partial snapshot may exist.
type SnapshotError struct {
	VG, LV string
	Err    error
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("snapshot creation failed for %s/%s: %v", e.VG, e.LV, e.Err)
}

func (e *SnapshotError) Unwrap() error { return e.Err }

// TransferError records a failed stream into the artifact file. A partial
// file may remain on disk.
type TransferError struct {
	Snapshot string
	Dest     string
	Err      error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer of %s to %s failed: %v", e.Snapshot, e.Dest, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// CleanupError means the remote snapshot could not be removed. This is the
// one unrecoverable failure: a leaked snapshot collides with the next run
// and consumes remote storage until removed by hand.
type CleanupError struct {
	Snapshot string
	Err      error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("could not remove snapshot %s: %v", e.Snapshot, e.Err)
}

func (e *CleanupError) Unwrap() error { return e.Err }
