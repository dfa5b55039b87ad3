// Package domain defines the core business entities for tasklift.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Credential: One provider's persisted OAuth grant
//   - TaskRecord: A normalized task produced by the generation client
//   - DispatchOutcome: The result of creating one record downstream
//   - SendSummary: The per-destination reduction of one send
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
