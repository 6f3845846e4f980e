//go:build !frida

package agent

import "context"

// Run is unavailable without the frida build tag.
func Run(ctx context.Context, t Target, script string, onMessage MessageFunc) error {
	return ErrFridaUnavailable
}
