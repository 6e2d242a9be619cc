// Package buildinfo carries version metadata injected via -ldflags.
package buildinfo

var (
	Version = "dev"
	Commit  = "unknown"
	BuiltAt = "unknown"
)

func Info() map[string]string {
	return map[string]string{"version": Version, "commit": Commit, "built_at": BuiltAt}
}
