package version

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withBuildVars(t *testing.T, version, commit, built string) {
	t.Helper()
	oldVersion, oldCommit, oldBuilt := Version, GitCommit, BuildTime
	Version, GitCommit, BuildTime = version, commit, built
	t.Cleanup(func() {
		Version, GitCommit, BuildTime = oldVersion, oldCommit, oldBuilt
	})
}

func TestGetShortVersion(t *testing.T) {
	withBuildVars(t, "v1.2.3", "0123456789abcdef", "unknown")
	assert.Equal(t, "v1.2.3 (0123456)", GetShortVersion())

	withBuildVars(t, "v1.2.3", "abc", "unknown")
	assert.Equal(t, "v1.2.3", GetShortVersion())
}

func TestGetDetailedVersion(t *testing.T) {
	withBuildVars(t, "v0.4.0", "feedfacecafe", "2026-01-02T03:04:05Z")

	detailed := GetDetailedVersion()
	assert.True(t, strings.HasPrefix(detailed, "Version: v0.4.0\n"))
	assert.Contains(t, detailed, "Commit: feedfacecafe")
	assert.Contains(t, detailed, "Built: 2026-01-02T03:04:05Z")
	assert.Contains(t, detailed, "Platform: ")
}

func TestParseBuildTime(t *testing.T) {
	assert.True(t, parseBuildTime("unknown").IsZero())
	assert.True(t, parseBuildTime("").IsZero())
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), parseBuildTime("2026-01-02 03:04:05"))
}
