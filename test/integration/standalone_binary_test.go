//go:build cgo

package integration

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBinary compiles cmd/dailypick and copies it outside the repository so
// nothing resolves relative to the source tree.
func buildBinary(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("standalone binary copy/exec test is unix-focused")
	}

	goMod, err := exec.Command("go", "env", "GOMOD").Output()
	require.NoError(t, err)
	modPath := strings.TrimSpace(string(goMod))
	require.NotEmpty(t, modPath, "go env GOMOD returned empty")

	built := filepath.Join(t.TempDir(), "dailypick")
	build := exec.Command("go", "build", "-o", built, "./cmd/dailypick")
	build.Dir = filepath.Dir(modPath)
	build.Env = os.Environ()
	out, err := build.CombinedOutput()
	require.NoError(t, err, "go build: %s", out)

	data, err := os.ReadFile(built)
	require.NoError(t, err)
	copied := filepath.Join(t.TempDir(), "dailypick")
	require.NoError(t, os.WriteFile(copied, data, 0o755))
	return copied
}

// isolatedEnv points config and data at empty temp directories.
func isolatedEnv(t *testing.T) []string {
	t.Helper()
	return append(os.Environ(),
		"XDG_CONFIG_HOME="+t.TempDir(),
		"XDG_DATA_HOME="+t.TempDir(),
		"DAILYPICK_DB_PATH="+filepath.Join(t.TempDir(), "dailypick.db"),
	)
}

func TestStandaloneBinary(t *testing.T) {
	binary := buildBinary(t)
	env := isolatedEnv(t)
	workdir := t.TempDir()

	run := func(args ...string) []byte {
		t.Helper()
		cmd := exec.Command(binary, args...)
		cmd.Dir = workdir
		cmd.Env = env
		out, err := cmd.Output()
		require.NoError(t, err, "%s failed", strings.Join(args, " "))
		return out
	}

	t.Run("version and help", func(t *testing.T) {
		assert.Contains(t, string(run("version")), "dailypick")
		assert.Contains(t, string(run("--help")), "pick")
	})

	t.Run("empty catalog picks nothing", func(t *testing.T) {
		var result struct {
			Date string `json:"date"`
			Path string `json:"path"`
		}
		require.NoError(t, json.Unmarshal(run("pick", "--date", "2025-12-25", "--output-format", "json"), &result))
		assert.Equal(t, "2025-12-25", result.Date)
		assert.Equal(t, "none", result.Path)
	})

	t.Run("added candidate is picked", func(t *testing.T) {
		run("candidates", "add", "--id", "cedar", "--name", "Cedar", "--tag", "holiday")

		var result struct {
			Candidate struct {
				ID string `json:"id"`
			} `json:"candidate"`
		}
		require.NoError(t, json.Unmarshal(run("pick", "--date", "2025-12-25", "--output-format", "json"), &result))
		assert.Equal(t, "cedar", result.Candidate.ID)
	})
}
