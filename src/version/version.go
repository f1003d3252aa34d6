package version

// Version is the CLI version, overridable at build time via -ldflags.
var Version = "0.2.0"
