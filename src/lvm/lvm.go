package lvm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"lvm-backup/src/sshexec"
)

// Client is the narrow LVM surface the backup engine needs. Every
// operation maps to one remote shell command; see the exported command
// builders below for the exact strings.
type Client interface {
	// Ping verifies the remote shell is reachable and executing commands.
	Ping(ctx context.Context) error
	// VGExists checks the volume group device directory.
	VGExists(ctx context.Context, vg string) (bool, error)
	// LVExists checks the logical volume device node.
	LVExists(ctx context.Context, vg, lv string) (bool, error)
	// CreateSnapshot creates a copy-on-write snapshot of vg/lv.
	CreateSnapshot(ctx context.Context, vg, lv, name, size string) error
	// RemoveSnapshot force-deletes a snapshot volume.
	RemoveSnapshot(ctx context.Context, vg, name string) error
	// StreamSnapshot copies the snapshot's raw content, gzip-compressed on
	// the remote side, into out.
	StreamSnapshot(ctx context.Context, vg, name string, out io.Writer) error
}

// VGPath returns the device directory for a volume group.
func VGPath(vg string) string { return "/dev/" + vg }

// DevicePath returns the device node for a logical volume.
func DevicePath(vg, lv string) string { return "/dev/" + vg + "/" + lv }

// PingCommand is the trivial connectivity probe.
func PingCommand() string { return "echo ok" }

// DeviceTestCommand probes a remote path.
func DeviceTestCommand(path string) string { return "test -e " + path }

// SnapshotCreateCommand builds the lvcreate invocation for the snapshot.
func SnapshotCreateCommand(vg, lv, name, size string) string {
	return fmt.Sprintf("lvcreate --snapshot --size %s --name %s %s", size, name, DevicePath(vg, lv))
}

// SnapshotRemoveCommand builds the forced lvremove invocation.
func SnapshotRemoveCommand(vg, name string) string {
	return "lvremove -f " + DevicePath(vg, name)
}

// SnapshotStreamCommand builds the raw-read pipeline. Compression happens
// on the remote side so only compressed bytes cross the connection.
func SnapshotStreamCommand(vg, name string) string {
	return fmt.Sprintf("dd if=%s bs=4M status=none | gzip -c", DevicePath(vg, name))
}

// Remote implements Client over an SSH runner.
type Remote struct {
	runner sshexec.Runner
}

func NewRemote(r sshexec.Runner) *Remote {
	return &Remote{runner: r}
}

func (c *Remote) Ping(ctx context.Context) error {
	out, err := c.runner.Run(ctx, PingCommand())
	if err != nil {
		return fmt.Errorf("remote shell probe failed: %w", err)
	}
	if strings.TrimSpace(string(out)) != "ok" {
		return fmt.Errorf("remote shell probe returned %q", strings.TrimSpace(string(out)))
	}
	return nil
}

// exists runs a test command. A non-zero exit means the path is absent;
// any other failure is surfaced so a dropped connection is not mistaken
// for a missing device.
func (c *Remote) exists(ctx context.Context, path string) (bool, error) {
	_, err := c.runner.Run(ctx, DeviceTestCommand(path))
	if err == nil {
		return true, nil
	}
	var exit *sshexec.ExitError
	if errors.As(err, &exit) {
		return false, nil
	}
	return false, fmt.Errorf("probe %s: %w", path, err)
}

func (c *Remote) VGExists(ctx context.Context, vg string) (bool, error) {
	return c.exists(ctx, VGPath(vg))
}

func (c *Remote) LVExists(ctx context.Context, vg, lv string) (bool, error) {
	return c.exists(ctx, DevicePath(vg, lv))
}

func (c *Remote) CreateSnapshot(ctx context.Context, vg, lv, name, size string) error {
	out, err := c.runner.Run(ctx, SnapshotCreateCommand(vg, lv, name, size))
	if err != nil {
		return fmt.Errorf("lvcreate %s/%s: %w: %s", vg, name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (c *Remote) RemoveSnapshot(ctx context.Context, vg, name string) error {
	out, err := c.runner.Run(ctx, SnapshotRemoveCommand(vg, name))
	if err != nil {
		return fmt.Errorf("lvremove %s/%s: %w: %s", vg, name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (c *Remote) StreamSnapshot(ctx context.Context, vg, name string, out io.Writer) error {
	if err := c.runner.Stream(ctx, SnapshotStreamCommand(vg, name), out); err != nil {
		return fmt.Errorf("stream %s: %w", DevicePath(vg, name), err)
	}
	return nil
}
