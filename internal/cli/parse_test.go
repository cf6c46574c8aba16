package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Text(t *testing.T) {
	out, err := runCLI(t, nil, "", "parse", filterChain)
	require.NoError(t, err)
	assert.Equal(t, "filter FILTER(?o != 0) [s p o]\n  source: bgp ?s ?p ?o . [s p o]\n", out)
}

func TestParse_FromFileAndStdin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.rq")
	require.NoError(t, os.WriteFile(path, []byte(filterChain), 0644))

	fromFile, err := runCLI(t, nil, "", "parse", "--file", path)
	require.NoError(t, err)

	fromStdin, err := runCLI(t, nil, filterChain, "parse")
	require.NoError(t, err)

	fromDash, err := runCLI(t, nil, filterChain, "parse", "-")
	require.NoError(t, err)

	assert.Equal(t, fromFile, fromStdin)
	assert.Equal(t, fromFile, fromDash)
}

func TestParse_NoQuery(t *testing.T) {
	_, err := runCLI(t, nil, "  \n", "parse")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no query given")
}

func TestParse_JSON(t *testing.T) {
	out, err := runCLI(t, nil, "", "parse", "--format", "json", filterChain)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   ParseResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Nodes, 2)
	assert.Equal(t, "filter", string(resp.Data.Nodes[0].Kind))
	assert.Equal(t, 1, resp.Data.Nodes[1].Position)
	assert.Equal(t, []string{"s", "p", "o"}, resp.Data.Nodes[1].Dimensions)
	assert.Empty(t, resp.Data.Fallbacks)
}

func TestParse_Fallbacks(t *testing.T) {
	out, err := runCLI(t, nil, "", "parse", "SELECT * WHERE { ?s ?p ?o MINUS { ?s ?p 1 } }")
	require.NoError(t, err)
	assert.Contains(t, out, "unit (minus)")
	assert.Contains(t, out, `fallback [0] minus: no translator for "minus"`)
}

func TestParse_ParseError(t *testing.T) {
	out, err := runCLI(t, nil, "", "parse", "--format", "json", "SELECT * WHERE {")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeParse, resp.Error.Code)
	details, ok := resp.Error.Details.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details, "line")
	assert.Contains(t, details, "column")
}

func TestQueries_All(t *testing.T) {
	out, err := runCLI(t, nil, "", "queries", filterChain)
	require.NoError(t, err)
	assert.Equal(t, "[0] filter [s p o]\n"+
		"SELECT * WHERE {\n  ?s ?p ?o .\n  FILTER(?o != 0)\n}\n"+
		"\n"+
		"[1] bgp [s p o]\n"+
		"SELECT * WHERE {\n  ?s ?p ?o .\n}\n", out)
}

func TestQueries_SingleNode(t *testing.T) {
	out, err := runCLI(t, nil, "", "queries", "--node", "1", filterChain)
	require.NoError(t, err)
	assert.Equal(t, "[1] bgp [s p o]\nSELECT * WHERE {\n  ?s ?p ?o .\n}\n", out)

	out, err = runCLI(t, nil, "", "queries", "--node", "1", "--format", "json", filterChain)
	require.NoError(t, err)
	var resp struct {
		Data []nodeSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, 1, resp.Data[0].Position)
	assert.Equal(t, "SELECT * WHERE {\n  ?s ?p ?o .\n}", resp.Data[0].Query)
}

func TestQueries_NodeOutOfRange(t *testing.T) {
	_, err := runCLI(t, nil, "", "queries", "--node", "9", filterChain)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no node at position 9 (tree has 2)")
}
