package sshexec

import (
	"context"
	"io"
)

// FakeRunner is an in-memory Runner for unit tests. It records every
// command issued and serves scripted results keyed by exact command
// string; unscripted commands succeed with empty output.
type FakeRunner struct {
	Commands   []string
	Outputs    map[string][]byte
	Errs       map[string]error
	StreamData []byte
	StreamErr  error
	Closed     bool
}

func NewFake() *FakeRunner {
	return &FakeRunner{
		Outputs: map[string][]byte{},
		Errs:    map[string]error{},
	}
}

func (f *FakeRunner) Run(_ context.Context, command string) ([]byte, error) {
	f.Commands = append(f.Commands, command)
	return f.Outputs[command], f.Errs[command]
}

func (f *FakeRunner) Stream(_ context.Context, command string, out io.Writer) error {
	f.Commands = append(f.Commands, command)
	if err := f.Errs[command]; err != nil {
		return err
	}
	if len(f.StreamData) > 0 {
		if _, err := out.Write(f.StreamData); err != nil {
			return err
		}
	}
	return f.StreamErr
}

func (f *FakeRunner) Close() error {
	f.Closed = true
	return nil
}
