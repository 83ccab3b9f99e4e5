// Package grass drives GRASS GIS modules for the r.out.rgb CLI.
//
// This package wraps the GRASS module command line (via os/exec) to create
// imagery groups, export them with r.out.gdal, and query and clean up the
// database catalog. It is the only place that knows module names and
// parameter syntax.
//
// Design decisions:
//   - We shell out to the module executables rather than linking the GRASS
//     C library, because modules are the stable public interface of GRASS
//     and they already run inside the user's session (GISRC).
//   - Command execution goes through the Runner interface so tests can
//     record invocations without a GRASS installation.
//   - Module failures are returned as *CommandError, carrying the module
//     name, arguments and the tail of its stderr for diagnostics.
package grass
