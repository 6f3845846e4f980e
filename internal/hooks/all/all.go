// Package all imports all definition packages to ensure they register via init().
// Import this package in session setup to enable every target.
//
// Example:
//
//	import _ "github.com/zboralski/cryptotap/internal/hooks/all"
package all

import (
	// Import all definition packages for side effects (init registration)
	_ "github.com/zboralski/cryptotap/internal/hooks/flutter"
	_ "github.com/zboralski/cryptotap/internal/hooks/jca"
)
