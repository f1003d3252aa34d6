package lvm_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"lvm-backup/src/lvm"
	"lvm-backup/src/sshexec"
)

func TestCommandBuilders(t *testing.T) {
	if got := lvm.SnapshotCreateCommand("vg_shiva_domU", "hpc-disk", "hpc-disk-backupsnap", "1G"); got != "lvcreate --snapshot --size 1G --name hpc-disk-backupsnap /dev/vg_shiva_domU/hpc-disk" {
		t.Fatalf("create command = %q", got)
	}
	if got := lvm.SnapshotRemoveCommand("vg_shiva_domU", "hpc-disk-backupsnap"); got != "lvremove -f /dev/vg_shiva_domU/hpc-disk-backupsnap" {
		t.Fatalf("remove command = %q", got)
	}
	if got := lvm.SnapshotStreamCommand("vg_shiva_domU", "hpc-disk-backupsnap"); got != "dd if=/dev/vg_shiva_domU/hpc-disk-backupsnap bs=4M status=none | gzip -c" {
		t.Fatalf("stream command = %q", got)
	}
	if got := lvm.DeviceTestCommand(lvm.DevicePath("vg0", "lv0")); got != "test -e /dev/vg0/lv0" {
		t.Fatalf("test command = %q", got)
	}
}

func TestPing(t *testing.T) {
	r := sshexec.NewFake()
	r.Outputs["echo ok"] = []byte("ok\n")
	c := lvm.NewRemote(r)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r = sshexec.NewFake()
	r.Errs["echo ok"] = errors.New("connection refused")
	if err := lvm.NewRemote(r).Ping(context.Background()); err == nil {
		t.Fatal("expected ping to fail")
	}

	r = sshexec.NewFake()
	r.Outputs["echo ok"] = []byte("garbled")
	if err := lvm.NewRemote(r).Ping(context.Background()); err == nil {
		t.Fatal("expected unexpected probe output to fail")
	}
}

func TestExistsChecks(t *testing.T) {
	r := sshexec.NewFake()
	r.Errs["test -e /dev/vg0/absent"] = &sshexec.ExitError{Status: 1}
	c := lvm.NewRemote(r)

	if ok, err := c.VGExists(context.Background(), "vg0"); err != nil || !ok {
		t.Fatalf("VGExists = %v, %v", ok, err)
	}
	if ok, err := c.LVExists(context.Background(), "vg0", "absent"); err != nil || ok {
		t.Fatalf("LVExists = %v, %v", ok, err)
	}
	want := []string{"test -e /dev/vg0", "test -e /dev/vg0/absent"}
	if len(r.Commands) != 2 || r.Commands[0] != want[0] || r.Commands[1] != want[1] {
		t.Fatalf("commands = %v", r.Commands)
	}
}

func TestExistsChecks_TransportFailureIsNotAbsence(t *testing.T) {
	r := sshexec.NewFake()
	r.Errs["test -e /dev/vg0"] = errors.New("connection reset by peer")

	ok, err := lvm.NewRemote(r).VGExists(context.Background(), "vg0")
	if err == nil {
		t.Fatal("expected transport failure to surface as an error")
	}
	if ok {
		t.Fatal("failed probe must not report the device as present")
	}
}

func TestSnapshotLifecycleCommands(t *testing.T) {
	r := sshexec.NewFake()
	c := lvm.NewRemote(r)
	ctx := context.Background()

	if err := c.CreateSnapshot(ctx, "vg0", "disk", "disk-backupsnap", "1G"); err != nil {
		t.Fatal(err)
	}
	if err := c.RemoveSnapshot(ctx, "vg0", "disk-backupsnap"); err != nil {
		t.Fatal(err)
	}
	if len(r.Commands) != 2 {
		t.Fatalf("commands = %v", r.Commands)
	}
}

func TestCreateSnapshot_WrapsRemoteOutput(t *testing.T) {
	r := sshexec.NewFake()
	cmd := lvm.SnapshotCreateCommand("vg0", "disk", "disk-backupsnap", "1G")
	r.Errs[cmd] = errors.New("exit status 5")
	r.Outputs[cmd] = []byte("  Volume group \"vg0\" has insufficient free space\n")

	err := lvm.NewRemote(r).CreateSnapshot(context.Background(), "vg0", "disk", "disk-backupsnap", "1G")
	if err == nil {
		t.Fatal("expected error")
	}
	if !bytes.Contains([]byte(err.Error()), []byte("insufficient free space")) {
		t.Fatalf("error should carry remote output: %v", err)
	}
}

func TestStreamSnapshot(t *testing.T) {
	r := sshexec.NewFake()
	r.StreamData = []byte("gzip bytes")
	var buf bytes.Buffer
	if err := lvm.NewRemote(r).StreamSnapshot(context.Background(), "vg0", "disk-backupsnap", &buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "gzip bytes" {
		t.Fatalf("streamed %q", buf.String())
	}

	r = sshexec.NewFake()
	r.StreamErr = errors.New("exit status 1")
	if err := lvm.NewRemote(r).StreamSnapshot(context.Background(), "vg0", "disk-backupsnap", &buf); err == nil {
		t.Fatal("expected stream failure")
	}
}
