// Package codec implements the binary chain format.
//
// A chain is a sequence of records, one per step. Each record lists the
// nodes that changed in that step, grouped by the partition they moved to.
//
// Wire format (all words big-endian uint16):
//
//	record  = group* END_OF_RECORD
//	group   = [SKIP_ESCAPE count:1]+ node*
//	          | node*                 (only for partition 0)
//
// Where:
//   - END_OF_RECORD = 0xFFFF closes the record
//   - SKIP_ESCAPE = 0xFFFE is followed by a single count byte (1..255) that
//     advances the partition cursor; longer runs chain several escapes
//   - every other word is a node id (0..0xFFFD) assigned to the partition
//     under the cursor
//
// The cursor starts at 0 in every record. The first record carries every
// node with a non-zero label, so replaying from an empty snapshot
// reproduces each step.
package codec
