package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sparqlayers/internal/config"
	"github.com/roach88/sparqlayers/internal/testutil"
)

const askAll = "ASK { ?s ?p ?o }"

func TestDocuments_Flow(t *testing.T) {
	stub := testutil.NewStubTransport(askTrue)
	db := tempStore(t)

	out, err := runCLI(t, nil, "", "doc", "list", "--store", db)
	require.NoError(t, err)
	assert.Equal(t, "No documents.\n", out)

	out, err = runCLI(t, nil, "", "doc", "save", "people", askAll, "--store", db)
	require.NoError(t, err)
	assert.Equal(t, "✓ saved people (revision 1)\n", out)

	out, err = runCLI(t, nil, "", "doc", "save", "people", askAll, "--store", db)
	require.NoError(t, err)
	assert.Equal(t, "✓ saved people (revision 2)\n", out)

	out, err = runCLI(t, nil, "", "doc", "list", "--store", db)
	require.NoError(t, err)
	assert.Equal(t, "people\trev 2\t"+config.DefaultLocation+"\n", out)

	out, err = runCLI(t, nil, "", "doc", "show", "people", "--store", db)
	require.NoError(t, err)
	assert.Equal(t, "# people (revision 2) @ "+config.DefaultLocation+"\n"+askAll+"\n", out)

	out, err = runCLI(t, stub, "", "doc", "exec", "people", "--store", db)
	require.NoError(t, err)
	assert.Equal(t, askTrue+"\n", out)

	out, err = runCLI(t, nil, "", "history", "--store", db)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "✓ 1 ask "), out)

	out, err = runCLI(t, nil, "", "doc", "rm", "people", "--store", db)
	require.NoError(t, err)
	assert.Equal(t, "✓ deleted people\n", out)

	out, err = runCLI(t, nil, "", "doc", "show", "people", "--store", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")
}

func TestDocuments_SaveLocation(t *testing.T) {
	stub := testutil.NewStubTransport(askTrue)
	db := tempStore(t)

	_, err := runCLI(t, nil, "", "doc", "save", "remote", askAll, "--location", "http://other.test/sparql", "--store", db)
	require.NoError(t, err)

	_, err = runCLI(t, stub, "", "doc", "exec", "remote", "--store", db)
	require.NoError(t, err)
	require.Len(t, stub.Requests(), 1)
	assert.Equal(t, "http://other.test/sparql", stub.Requests()[0].Location)
}

func TestDocuments_SaveRejectsBadQuery(t *testing.T) {
	db := tempStore(t)

	out, err := runCLI(t, nil, "", "doc", "save", "broken", "ASK {", "--store", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")

	out, err = runCLI(t, nil, "", "doc", "list", "--store", db)
	require.NoError(t, err)
	assert.Equal(t, "No documents.\n", out)
}

func TestDocuments_RemoveMissing(t *testing.T) {
	out, err := runCLI(t, nil, "", "doc", "rm", "ghost", "--store", tempStore(t))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, `no document named "ghost"`)
}
