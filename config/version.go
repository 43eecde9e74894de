package config

import "time"

// Build metadata, set with -ldflags "-X mihiraki/config.Version=..."
var (
	Version   string
	GitCommit string
	BuildTime string
)

func init() {
	if Version == "" {
		Version = "dev"
	}
	if GitCommit == "" {
		GitCommit = "local"
	}
	if BuildTime == "" {
		BuildTime = time.Now().Format(time.DateTime)
	}
}

// VersionString describes the build for --version output.
func VersionString() string {
	return Version + " (" + GitCommit + ", built " + BuildTime + ")"
}
