// Package domain defines the core domain models for pcompress.
//
// Domain models are plain values without IO dependencies:
//
//   - Snapshot: node to partition assignment for one step
//   - Delta: nodes that changed in one step, grouped by new partition
//   - Chain: catalog metadata for a recorded chain
//   - Errors: coded domain errors shared by every layer
package domain
