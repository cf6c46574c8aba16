package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sparqlayers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validConfig = `default_profile: local
profiles:
  - name: local
    location: http://localhost:3030/ds/sparql
  - name: remote
    location: https://example.org/sparql
cache:
  size: 0
`

func TestValidate_ConfigOnly(t *testing.T) {
	path := writeConfig(t, validConfig)

	out, err := runCLI(t, nil, "", "validate", "--config", path, "--config-only")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ config "+path+" is valid (profile local)")
	assert.NotContains(t, out, "query")
}

func TestValidate_Defaults(t *testing.T) {
	out, err := runCLI(t, nil, "", "validate", "--config-only")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ config (defaults) is valid (profile default)")
}

func TestValidate_Query(t *testing.T) {
	out, err := runCLI(t, nil, "", "validate", filterChain)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ query is valid (2 operators)")
}

func TestValidate_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "profiles:\n  - name: bad\n    location: ftp://example.org\n")

	out, err := runCLI(t, nil, "", "validate", "--config", path, "--config-only", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeConfig, resp.Error.Code)
	assert.Equal(t, map[string]any{"path": "profiles.0.location"}, resp.Error.Details)
}

func TestValidate_UnknownProfile(t *testing.T) {
	path := writeConfig(t, validConfig)

	_, err := runCLI(t, nil, "", "validate", "--config", path, "--profile", "nope", "--config-only")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `unknown profile "nope"`)
}

func TestValidate_Fallbacks(t *testing.T) {
	out, err := runCLI(t, nil, "", "validate", "SELECT * WHERE { ?s ?p ?o MINUS { ?s ?p 1 } }")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]: 1 form(s) have no algebra operator")
}

func TestValidate_ParseError(t *testing.T) {
	out, err := runCLI(t, nil, "", "validate", "ASK {")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
}
