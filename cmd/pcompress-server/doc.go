// Package main provides the entry point for pcompress-server.
//
// The server keeps a catalog of uploaded chains and serves them over HTTP:
// listing, metadata, raw download, replay as JSON lines and Prometheus
// metrics.
//
// Usage:
//
//	pcompress-server [--config /etc/pcompress/server.yaml]
//
// Configuration comes from the YAML file and PCOMPRESS_ environment
// variables. When a file is given it is watched; a changed log.level is
// applied without a restart.
package main
