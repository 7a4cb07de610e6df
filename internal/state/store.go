// Package state provides the run ledger of morph using SQLite.
// It records every conversion run and per-record row counts.
//
// Core types are defined in pkg/core. This package re-exports them via
// type aliases.
package state

import (
	"github.com/leapstack-labs/morph/pkg/core"
)

type (
	// Store is an alias for core.Store.
	Store = core.Store

	// RunStatus is an alias for core.RunStatus.
	RunStatus = core.RunStatus

	// Run is an alias for core.Run.
	Run = core.Run

	// RecordRun is an alias for core.RecordRun.
	RecordRun = core.RecordRun
)

// Run status constants, re-exported from core.
const (
	RunStatusRunning   = core.RunStatusRunning
	RunStatusCompleted = core.RunStatusCompleted
	RunStatusFailed    = core.RunStatusFailed
	RunStatusValidated = core.RunStatusValidated
)

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)
