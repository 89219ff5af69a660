// Package version holds build metadata injected with -ldflags "-X".
package version

// Set at build time.
var (
	Version   = "0.0.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info is the build metadata served at /version.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// Get returns the current build metadata.
func Get() Info {
	return Info{Version: Version, Commit: GitCommit, BuildDate: BuildDate}
}

// String formats the metadata for the -version flag.
func (i Info) String() string {
	return "account-garden " + i.Version + " (commit " + i.Commit + ", built " + i.BuildDate + ")"
}
