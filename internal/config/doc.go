// Package config assembles the agreement configuration from several sources.
//
// Sources are merged in the following priority order (later sources override
// earlier non-zero fields):
//  1. Built-in defaults
//  2. YAML or JSON config file
//  3. Environment variables prefixed with AGREEMENT_ (a .env file is loaded
//     first when present)
//  4. Command-line flags
//
// The entry points are [Load] and [Save].
package config
