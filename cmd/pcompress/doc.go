// Package main provides the entry point for pcompress.
//
// pcompress records the evolving partition of a graph's nodes as a compact
// binary chain of deltas and replays it later:
//
//	pcompress encode snapshots.jsonl run.chain
//	pcompress decode --diff run.chain
//	pcompress stat run.chain
//	pcompress verify run.chain snapshots.jsonl
//	pcompress chain import --graph-hash g1 run.chain
//
// Run "pcompress help" for the full command list.
package main
