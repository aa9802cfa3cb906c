// Package output renders pcompress CLI reports.
//
// Reports (stat, verify, chain list, config show, version) are printed as
// a table, JSON or YAML. Record streams from encode and decode never go
// through this package; they are written by internal/textio.
//
// Table rendering reads struct tags: the json tag names the column, and
// `table:"-"` hides a field, `table:"wide"` shows it only in wide mode and
// `table:"bytes"` prints an integer as a human readable size.
package output
