package sower

// Version is the library version. Release builds override it via
// -ldflags "-X github.com/aretw0/sower.Version=...".
var Version = "0.1.0"
