// Package confloader loads layered configuration with koanf.
//
// Sources, lowest priority first:
//
//  1. Defaults registered with WithDefaults
//  2. A YAML file
//  3. Environment variables (PCOMPRESS_ prefix)
//  4. Explicit overrides, usually command-line flags, via LoadMap
//
// Environment variable names map onto known keys, so
// PCOMPRESS_CATALOG_DATA_DIR sets catalog.data_dir rather than
// catalog.data.dir. Unknown variables fall back to one dot per underscore.
//
// Watcher reports changes to a config file so long-running processes can
// call Reload and apply the settings that may change at runtime.
package confloader
