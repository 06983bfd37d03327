package conductor

// Version is the library version, injected into release builds.
var Version = "0.1.0"
