// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "errors"

var (
	// ErrMissingRuntime is returned when an App is created without a runtime.
	ErrMissingRuntime = errors.New("runtime is required")

	// ErrUnknownBus is returned for an unsupported bus backend.
	ErrUnknownBus = errors.New("unknown bus backend")

	// ErrUnknownCache is returned for an unsupported registry cache backend.
	ErrUnknownCache = errors.New("unknown registry cache backend")
)
