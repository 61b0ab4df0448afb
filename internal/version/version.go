// Package version reports how the reel binary was built and which ffmpeg
// tools it will decode videos with.
package version

import (
	"fmt"
	"os/exec"
	"runtime"
	"runtime/debug"
	"strings"
)

// Build metadata set with -ldflags "-X github.com/jmylchreest/reel/internal/version.Version=x.y.z".
// Empty values fall back to what the go tool embeds in the binary.
var (
	Version = ""
	Commit  = ""
	Date    = ""
)

// Info describes a reel build.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Date      string `json:"date,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build information, preferring ldflags values over the
// module version and VCS stamps recorded by the go tool.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info = withBuildInfo(info, bi)
	}
	if info.Version == "" {
		info.Version = "dev"
	}
	return info
}

func withBuildInfo(info Info, bi *debug.BuildInfo) Info {
	if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = strings.TrimPrefix(bi.Main.Version, "v")
	}
	if info.Commit != "" {
		return info
	}

	dirty := false
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Commit = s.Value
		case "vcs.time":
			if info.Date == "" {
				info.Date = s.Value
			}
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if dirty && info.Commit != "" {
		info.Commit += "-dirty"
	}
	return info
}

// String returns a one line summary such as
// "reel 1.2.0 (commit 01234567, built 2026-01-02T03:04:05Z, go1.24.0 linux/amd64)".
func (i Info) String() string {
	parts := make([]string, 0, 3)
	if i.Commit != "" {
		parts = append(parts, "commit "+shortCommit(i.Commit))
	}
	if i.Date != "" {
		parts = append(parts, "built "+i.Date)
	}
	parts = append(parts, i.GoVersion+" "+i.Platform)
	return fmt.Sprintf("reel %s (%s)", i.Version, strings.Join(parts, ", "))
}

// Tool is an external program reel depends on.
type Tool struct {
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
}

// Found reports whether the tool was located.
func (t Tool) Found() bool {
	return t.Path != ""
}

// Tools locates ffmpeg and ffprobe on PATH.
func Tools() []Tool {
	return lookTools(exec.LookPath, "ffmpeg", "ffprobe")
}

func lookTools(look func(string) (string, error), names ...string) []Tool {
	tools := make([]Tool, 0, len(names))
	for _, name := range names {
		path, err := look(name)
		if err != nil {
			path = ""
		}
		tools = append(tools, Tool{Name: name, Path: path})
	}
	return tools
}

// shortCommit abbreviates a commit hash to 8 characters, keeping a -dirty suffix.
func shortCommit(commit string) string {
	hash, suffix, _ := strings.Cut(commit, "-")
	if len(hash) > 8 {
		hash = hash[:8]
	}
	if suffix != "" {
		return hash + "-" + suffix
	}
	return hash
}
