// Package envfile applies a profile's credentials to the current project
// by writing a .mise.toml that mise loads into the environment.
package envfile

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// MiseFile is the file written into the project directory.
const MiseFile = ".mise.toml"

const miseTemplate = `# mise configuration for ecce project
# Environment variables set by ecce tool

[env]
ANTHROPIC_BASE_URL = %q
ANTHROPIC_API_KEY = %q
`

// WriteMise writes the credentials file for the claude-code service into
// dir and returns the written path.
func WriteMise(dir, baseURL, apiKey string) (string, error) {
	path := filepath.Join(dir, MiseFile)
	content := fmt.Sprintf(miseTemplate, baseURL, apiKey)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", MiseFile, err)
	}
	return path, nil
}

// MaskKey shortens an API key for display: first eight characters plus a
// marker.
func MaskKey(key string) string {
	if len(key) > 8 {
		key = key[:8]
	}
	return key + "***"
}

// MiseStatus reports whether mise is installed (on PATH) and activated in
// the current shell.
func MiseStatus() (installed, activated bool) {
	_, err := exec.LookPath("mise")
	installed = err == nil

	for _, name := range []string{"MISE_SHELL", "__MISE_WATCH", "MISE_DATA_DIR"} {
		if _, ok := os.LookupEnv(name); ok {
			activated = true
			break
		}
	}
	return installed, activated
}
