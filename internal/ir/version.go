package ir

// Version constants for the storage schema and engine.
const (
	// SchemaVersion is the on-disk quad store schema version.
	SchemaVersion = 2

	// EngineVersion is the think engine version.
	EngineVersion = "0.1.0"
)
