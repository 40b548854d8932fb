// Package state provides filesystem-backed storage implementations.
package state

import "github.com/user/intervoice/internal/types"

// Compile-time interface compliance checks.
var _ types.Store = (*Store)(nil)
