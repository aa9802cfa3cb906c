package codec

// Wire format constants.
const (
	EndOfRecord uint16 = 0xFFFF
	SkipEscape  uint16 = 0xFFFE

	// MaxNodeID is the largest node id that does not collide with a sentinel.
	MaxNodeID = 0xFFFD

	// MaxSkip is the largest count a single escape can carry.
	MaxSkip = 255

	// WordSize is the size of one wire word in bytes.
	WordSize = 2
)

// Buffer sizes used by stream readers and writers.
const (
	DefaultBufferSize = 1 << 20 // 1MB
)

// RecordStats summarizes one encoded or decoded record.
type RecordStats struct {
	// Nodes is the number of node words in the record.
	Nodes int
	// Groups is the number of non-empty partitions.
	Groups int
	// Skips is the number of escape groups.
	Skips int
	// Bytes is the encoded size including END_OF_RECORD.
	Bytes int
	// MaxPartition is the highest partition written, or -1 for an empty record.
	MaxPartition int
}

// Add folds o into s.
func (s *RecordStats) Add(o RecordStats) {
	s.Nodes += o.Nodes
	s.Groups += o.Groups
	s.Skips += o.Skips
	s.Bytes += o.Bytes
	s.MaxPartition = max(s.MaxPartition, o.MaxPartition)
}
