// Package version exposes the build revision stamped into logs and the CLI.
package version

import "runtime/debug"

// Commit is set at build time:
//
//	go build -ldflags "-X github.com/joeydtaylor/steeze-kv/pkg/version.Commit=$(git rev-parse --short HEAD)"
var Commit = ""

// Short returns the short revision, falling back to the VCS info embedded by the toolchain.
func Short() string {
	if Commit != "" {
		return Commit
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				if len(s.Value) > 7 {
					return s.Value[:7]
				}
				return s.Value
			}
		}
	}
	return "unknown"
}
