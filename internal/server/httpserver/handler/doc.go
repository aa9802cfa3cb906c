// Package handler provides the HTTP handlers of pcompress-server.
//
//   - chains.go: chain listing, metadata, file download and replay
//   - upload.go: multipart chain upload
//   - health.go: health check
//
// JSON endpoints answer with the Response envelope. Chain files and replay
// output are streamed as is.
package handler
