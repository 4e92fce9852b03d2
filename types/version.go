package types

// Version is the canonical project version.
// The CLI, the archive record format and the completion event contract
// share this version per the lockstep versioning policy.
const Version = "0.3.0"
