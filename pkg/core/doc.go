// Package core defines the shared language of the morph system.
//
// This package contains:
//   - Catalog entities (TableMetadata, Column, ForeignKey)
//   - Adapter configuration (AdapterConfig)
//   - Dialect configuration (DialectConfig, PlaceholderStyle)
//   - Run ledger entities (Run, RecordRun) and the Store interface
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
