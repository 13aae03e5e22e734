package ir

// Version constants for persisted state and the engine.
const (
	// StateVersion is the checkpoint state schema version.
	StateVersion = "1"

	// EngineVersion is the tridup engine version.
	EngineVersion = "0.1.0"
)
