package version

import "fmt"

var (
	// Version is the current application version.
	// Populated by the build system via ldflags.
	Version = "v0.4.1"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// UserAgent identifies zsc to upstream JSON APIs. Page fetches use the
// configured browser user agent instead.
func UserAgent() string {
	return fmt.Sprintf("zsc/%s", Version)
}
