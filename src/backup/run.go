package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"lvm-backup/src/backend"
	"lvm-backup/src/backend/directory"
	"lvm-backup/src/config"
	"lvm-backup/src/lvm"
	"lvm-backup/src/util/console"
	"lvm-backup/src/util/progress"
)

// Engine runs the one-shot backup pipeline: precondition checks, snapshot
// creation, streamed transfer, guaranteed snapshot removal.
type Engine struct {
	Req     config.BackupRequest
	LVM     lvm.Client
	Store   *directory.Backend
	Console *console.Console

	// Now is overridable for deterministic artifact paths in tests.
	Now func() time.Time
}

// Run executes the pipeline. Pre-flight failures return immediately with a
// *PreconditionError. Once the snapshot-create command has been issued,
// step failures are accumulated and the snapshot is removed under every
// code path; only a *CleanupError short-circuits after that point, and it
// overrides any accumulated failure.
func (e *Engine) Run(ctx context.Context) (err error) {
	req := e.Req
	snapshot := req.SnapshotName()

	if err := e.preflight(ctx); err != nil {
		return err
	}

	var failures []error

	defer func() {
		if cerr := e.cleanup(ctx, snapshot); cerr != nil {
			err = cerr
			return
		}
		if len(failures) > 0 {
			if err == nil {
				err = errors.Join(failures...)
			}
			return
		}
		if !req.DryRun {
			e.Console.Infof("backup of %s/%s from %s completed", req.VG, req.LV, req.Host)
		}
	}()

	if cerr := e.createSnapshot(ctx, snapshot); cerr != nil {
		e.Console.Errorf("%v", cerr)
		failures = append(failures, cerr)
	}

	if len(failures) == 0 {
		if terr := e.transfer(ctx, snapshot); terr != nil {
			e.Console.Errorf("%v", terr)
			failures = append(failures, terr)
		}
	}

	// The completion message is emitted by the defer, after the snapshot
	// has actually been removed.
	return nil
}

// preflight runs the sequential reachability checks. Each is independently
// fatal and nothing remote is mutated here.
func (e *Engine) preflight(ctx context.Context) error {
	req := e.Req

	if info, err := os.Stat(req.Dest); err != nil || !info.IsDir() {
		return &PreconditionError{Reason: fmt.Sprintf("destination directory %s does not exist", req.Dest)}
	}

	e.Console.Cmd(lvm.PingCommand())
	if err := e.LVM.Ping(ctx); err != nil {
		return &PreconditionError{Reason: fmt.Sprintf("host %s not reachable: %v", req.Host, err)}
	}

	e.Console.Cmd(lvm.DeviceTestCommand(lvm.VGPath(req.VG)))
	if ok, err := e.LVM.VGExists(ctx, req.VG); err != nil {
		return &PreconditionError{Reason: fmt.Sprintf("checking volume group %s: %v", req.VG, err)}
	} else if !ok {
		return &PreconditionError{Reason: fmt.Sprintf("volume group %s does not exist on %s", req.VG, req.Host)}
	}

	e.Console.Cmd(lvm.DeviceTestCommand(lvm.DevicePath(req.VG, req.LV)))
	if ok, err := e.LVM.LVExists(ctx, req.VG, req.LV); err != nil {
		return &PreconditionError{Reason: fmt.Sprintf("checking logical volume %s/%s: %v", req.VG, req.LV, err)}
	} else if !ok {
		return &PreconditionError{Reason: fmt.Sprintf("logical volume %s/%s does not exist on %s", req.VG, req.LV, req.Host)}
	}

	return nil
}

func (e *Engine) createSnapshot(ctx context.Context, snapshot string) error {
	req := e.Req
	cmd := lvm.SnapshotCreateCommand(req.VG, req.LV, snapshot, req.SnapSize)
	if req.DryRun {
		e.Console.DryRun(cmd)
		return nil
	}
	e.Console.Cmd(cmd)
	if err := e.LVM.CreateSnapshot(ctx, req.VG, req.LV, snapshot, req.SnapSize); err != nil {
		return &SnapshotError{VG: req.VG, LV: req.LV, Err: err}
	}
	e.Console.Infof("snapshot %s/%s created", req.VG, snapshot)
	return nil
}

// transfer streams the compressed snapshot into the artifact directory and
// records manifest and checksums. A failed stream leaves the partial file
// in place for inspection.
func (e *Engine) transfer(ctx context.Context, snapshot string) error {
	req := e.Req
	ts := e.now().UTC().Format(backend.TimestampLayout)
	dir := e.Store.ArtifactDir(req.Host, req.VG, req.LV, ts)
	image := filepath.Join(dir, directory.ImageName)
	cmd := lvm.SnapshotStreamCommand(req.VG, snapshot)

	if req.DryRun {
		e.Console.DryRun("mkdir -p " + dir)
		e.Console.DryRun(cmd + " > " + image)
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &TransferError{Snapshot: snapshot, Dest: dir, Err: err}
	}

	f, err := os.Create(image)
	if err != nil {
		return &TransferError{Snapshot: snapshot, Dest: image, Err: err}
	}

	e.Console.Cmd(cmd + " > " + image)
	w := progress.NewWriter(f, "transfer", e.Console.Writer())
	streamErr := e.LVM.StreamSnapshot(ctx, req.VG, snapshot, w)
	w.Finish()
	if cerr := f.Close(); streamErr == nil {
		streamErr = cerr
	}
	if streamErr != nil {
		return &TransferError{Snapshot: snapshot, Dest: image, Err: streamErr}
	}

	sum, err := directory.SHA256File(image)
	if err != nil {
		return &TransferError{Snapshot: snapshot, Dest: image, Err: err}
	}
	m := backend.Manifest{
		Type:      "lvm-raw",
		Host:      req.Host,
		VG:        req.VG,
		LV:        req.LV,
		Snapshot:  snapshot,
		CreatedAt: e.now().UTC(),
		SizeBytes: w.Written(),
		SHA256:    sum,
	}
	if err := directory.WriteManifest(dir, m); err != nil {
		return &TransferError{Snapshot: snapshot, Dest: dir, Err: err}
	}
	if err := directory.WriteChecksums(dir, []string{directory.ImageName, directory.ManifestName}); err != nil {
		return &TransferError{Snapshot: snapshot, Dest: dir, Err: err}
	}

	e.Console.Infof("wrote %s (%s)", image, humanize.Bytes(uint64(w.Written())))
	return nil
}

// cleanup force-removes the snapshot. It runs unconditionally after the
// create step was reached, including when creation itself failed, because
// a partial snapshot might still exist.
func (e *Engine) cleanup(ctx context.Context, snapshot string) error {
	req := e.Req
	cmd := lvm.SnapshotRemoveCommand(req.VG, snapshot)
	if req.DryRun {
		e.Console.DryRun(cmd)
		return nil
	}
	e.Console.Cmd(cmd)
	if err := e.LVM.RemoveSnapshot(ctx, req.VG, snapshot); err != nil {
		cerr := &CleanupError{Snapshot: snapshot, Err: err}
		e.Console.Failf("%v; manual removal on %s is required", cerr, req.Host)
		return cerr
	}
	e.Console.Infof("snapshot %s/%s removed", req.VG, snapshot)
	return nil
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}
