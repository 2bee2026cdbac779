// Package common provides shared constants for the PSI batch services.
package common

// PackageName identifies this project in metrics and logs.
const PackageName = "psifhe"

// Version is set at build time via -ldflags.
var Version = "dev"
