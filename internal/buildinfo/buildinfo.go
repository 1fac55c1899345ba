package buildinfo

import "runtime/debug"

// Set via -ldflags "-X antroute/internal/buildinfo.Version=..." at release time.
var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

const Service = "antroute"

// Info reports the stamped build. Without a stamped commit the VCS revision
// recorded by the Go toolchain is used.
func Info() map[string]string {
	commit, builtAt := Commit, BuiltAt
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && commit == "":
				commit = s.Value
			case s.Key == "vcs.time" && builtAt == "":
				builtAt = s.Value
			}
		}
	}
	return map[string]string{
		"service": Service,
		"version": Version,
		"commit":  commit,
		"builtAt": builtAt,
	}
}
