package roboflow

// Version is the release version, overridden at build time with -ldflags "-X".
var Version = "v0.1.0-dev"
