package domain

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ChainIDPrefix is the prefix of every chain id.
const ChainIDPrefix = "pcch-"

// Compression names the container a chain file is stored in.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
)

// ParseCompression validates a compression name. The empty string means none.
func ParseCompression(s string) (Compression, error) {
	switch Compression(strings.ToLower(s)) {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionZstd:
		return CompressionZstd, nil
	default:
		return "", ErrChainValidation.WithDetails(fmt.Sprintf("unknown compression %q", s))
	}
}

// Chain describes one recorded chain in the catalog.
//
// Timestamps are Unix seconds for the recording window and Unix
// milliseconds for CreatedAt.
type Chain struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	User     string `json:"user"`

	// GraphHash identifies the graph the chain was run on. It is opaque to
	// pcompress and only used for lookups.
	GraphHash    string `json:"graph_hash,omitempty"`
	GitCommit    string `json:"git_commit,omitempty"`
	GitRepoClean *bool  `json:"git_repo_clean,omitempty"`

	StartTimestamp int64 `json:"start_timestamp,omitempty"`
	EndTimestamp   int64 `json:"end_timestamp,omitempty"`
	CreatedAt      int64 `json:"created_at"`

	SHA256      string      `json:"sha256"`
	Size        int64       `json:"size"`
	Steps       int         `json:"steps"`
	Nodes       int         `json:"nodes"`
	Compression Compression `json:"compression"`
	Extreme     bool        `json:"extreme"`

	Attributes map[string]string `json:"attributes,omitempty"`
}

// NewChain creates a chain record with a fresh id.
func NewChain(filename, user string) (*Chain, error) {
	id, err := GenerateChainID()
	if err != nil {
		return nil, err
	}
	return &Chain{
		ID:          id,
		Filename:    filename,
		User:        user,
		CreatedAt:   time.Now().UnixMilli(),
		Compression: CompressionNone,
		Attributes:  make(map[string]string),
	}, nil
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// GenerateChainID generates a new chain id using ULID.
// Format: pcch-{ulid_lowercase}, 31 characters total.
// Ids generated by one process sort in creation order.
func GenerateChainID() (string, error) {
	entropyMu.Lock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	entropyMu.Unlock()
	if err != nil {
		return "", ErrInternal.WithCause(err)
	}
	return ChainIDPrefix + strings.ToLower(id.String()), nil
}

// IsValidChainID reports whether id is a well-formed chain id.
func IsValidChainID(id string) bool {
	id = strings.ToLower(id)
	if !strings.HasPrefix(id, ChainIDPrefix) {
		return false
	}
	// pcch- (5) + ULID (26)
	if len(id) != 31 {
		return false
	}
	_, err := ulid.Parse(strings.ToUpper(id[len(ChainIDPrefix):]))
	return err == nil
}

// NormalizeChainID lowercases id, returning "" when it is invalid.
func NormalizeChainID(id string) string {
	normalized := strings.ToLower(id)
	if !IsValidChainID(normalized) {
		return ""
	}
	return normalized
}

// Validate checks the fields the catalog relies on.
func (c *Chain) Validate() error {
	if !IsValidChainID(c.ID) {
		return ErrInvalidChainID.WithDetails(c.ID)
	}
	if c.User == "" {
		return ErrChainValidation.WithDetails("user is required")
	}
	// Both are used as catalog index key segments.
	if strings.Contains(c.User, "/") || strings.Contains(c.GraphHash, "/") {
		return ErrChainValidation.WithDetails("user and graph_hash must not contain '/'")
	}
	if c.Steps < 0 || c.Nodes < 0 || c.Size < 0 {
		return ErrChainValidation.WithDetails("negative counters")
	}
	if c.EndTimestamp != 0 && c.EndTimestamp < c.StartTimestamp {
		return ErrChainValidation.WithDetails("end_timestamp before start_timestamp")
	}
	if _, err := ParseCompression(string(c.Compression)); err != nil {
		return err
	}
	return nil
}

// CreatedAtTime returns CreatedAt as a time.Time.
func (c *Chain) CreatedAtTime() time.Time {
	return time.UnixMilli(c.CreatedAt)
}

// Clone returns a deep copy.
func (c *Chain) Clone() *Chain {
	out := *c
	if c.GitRepoClean != nil {
		clean := *c.GitRepoClean
		out.GitRepoClean = &clean
	}
	if c.Attributes != nil {
		out.Attributes = make(map[string]string, len(c.Attributes))
		for k, v := range c.Attributes {
			out.Attributes[k] = v
		}
	}
	return &out
}
