package version

// Tag is overridden at build time via -ldflags "-X ...version.Tag=v1.2.3"
var Tag = "v0.1.0"
