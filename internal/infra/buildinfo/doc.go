// Package buildinfo exposes version information for the pcompress
// binaries.
//
// Version, Commit and BuildTime are injected via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/pcompress-go/internal/infra/buildinfo.Version=v1.0.0"
//
// GoVersion is read from the binary's embedded build info.
package buildinfo
