// Package model defines the domain types and value objects for the
// r.out.rgb CLI.
//
// This package contains plain data structures and pure functions only.
// Every entity (BandTriple, ExportOptions, ephemeral group names) lives
// for a single invocation — nothing is persisted by this tool itself.
// The GRASS database owns the only durable state (the raster maps and the
// temporary group created during an export).
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
