// Package integration contains the commerce sync bounded context.
// It describes how the CRM mirrors an external storefront: the catalog is
// pulled in, orders are imported exactly once, and local stock is pushed back.
//
// Key concepts:
//   - Platform: Port interface for the external storefront's REST API
//   - Remote*: Value objects as the storefront reports them
//   - PhaseResult / RunSummary: Per-phase and per-run outcomes
//   - SyncCursor: Persisted watermark for incremental order import
//   - RunLock: Run-level mutex so two runs never overlap
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
