package agent

import (
	"context"
	"errors"
	"strings"
)

// ErrFridaUnavailable is returned by Run in builds without the frida tag.
var ErrFridaUnavailable = errors.New("built without frida support (rebuild with -tags frida)")

// Target says where the agent runs.
type Target struct {
	Device string // "usb", "local" or a device id
	Name   string // package identifier to spawn, or process name to attach to
	Spawn  bool   // spawn Name instead of attaching to a running process

	// Children also instruments spawned processes whose identifier starts
	// with Name, such as ":remote" service processes.
	Children bool
}

// MessageFunc receives every raw agent message.
type MessageFunc func(data []byte)

func (t Target) child(identifier string) bool {
	return t.Children && t.Name != "" && strings.HasPrefix(identifier, t.Name)
}

// watchLoop calls quit when ctx ends while a main loop is running. The
// returned stop marks the loop finished and waits for the watcher to exit,
// after which quit is never called.
func watchLoop(ctx context.Context, quit func()) (stop func()) {
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			quit()
		case <-done:
		}
	}()
	return func() {
		close(done)
		<-exited
	}
}
