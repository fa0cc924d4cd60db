package runtime

// Set at build time with -ldflags "-X github.com/soyunomas/relinker/internal/runtime.Version=...".
var (
	Version   = "0.0.0-dev"
	GitCommit = "unknown"
	Timestamp = "unknown"
)
