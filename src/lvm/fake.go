package lvm

import (
	"context"
	"fmt"
	"io"
)

// Fake is an in-memory Client for engine tests. Devices holds the remote
// paths that exist; Calls records every operation in order.
type Fake struct {
	Devices map[string]bool

	PingErr   error
	CreateErr error
	RemoveErr error
	StreamErr error

	StreamData []byte

	Calls       []string
	RemoveCalls int
}

func NewFakeClient() *Fake {
	return &Fake{Devices: map[string]bool{}}
}

// AddVolume registers a volume group and logical volume as present.
func (f *Fake) AddVolume(vg, lv string) {
	f.Devices[VGPath(vg)] = true
	f.Devices[DevicePath(vg, lv)] = true
}

func (f *Fake) record(format string, args ...any) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

func (f *Fake) Ping(context.Context) error {
	f.record("ping")
	return f.PingErr
}

func (f *Fake) VGExists(_ context.Context, vg string) (bool, error) {
	f.record("vg-exists %s", vg)
	return f.Devices[VGPath(vg)], nil
}

func (f *Fake) LVExists(_ context.Context, vg, lv string) (bool, error) {
	f.record("lv-exists %s/%s", vg, lv)
	return f.Devices[DevicePath(vg, lv)], nil
}

func (f *Fake) CreateSnapshot(_ context.Context, vg, lv, name, size string) error {
	f.record("create %s/%s -> %s (%s)", vg, lv, name, size)
	if f.CreateErr != nil {
		return f.CreateErr
	}
	f.Devices[DevicePath(vg, name)] = true
	return nil
}

func (f *Fake) RemoveSnapshot(_ context.Context, vg, name string) error {
	f.record("remove %s/%s", vg, name)
	f.RemoveCalls++
	if f.RemoveErr != nil {
		return f.RemoveErr
	}
	delete(f.Devices, DevicePath(vg, name))
	return nil
}

func (f *Fake) StreamSnapshot(_ context.Context, vg, name string, out io.Writer) error {
	f.record("stream %s/%s", vg, name)
	if f.StreamErr != nil {
		return f.StreamErr
	}
	_, err := out.Write(f.StreamData)
	return err
}
