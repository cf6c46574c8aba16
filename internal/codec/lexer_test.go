package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTexts(toks []Token) []string {
	out := make([]string, 0, len(toks))
	for _, t := range toks {
		out = append(out, t.Type.String()+":"+t.Text)
	}
	return out
}

func TestLex_Tokens(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "triple pattern",
			input: "?s ex:p <http://e/o> .",
			want:  []string{"VAR:s", "PNAME:ex:p", "IRI:http://e/o", "PUNCT:.", "EOF:"},
		},
		{
			name:  "trailing dot is not part of a prefixed name",
			input: "ex:Person.",
			want:  []string{"PNAME:ex:Person", "PUNCT:.", "EOF:"},
		},
		{
			name:  "less-than is an operator when no IRI follows",
			input: "?a < ?b <= 3",
			want:  []string{"VAR:a", "PUNCT:<", "VAR:b", "PUNCT:<=", "INTEGER:3", "EOF:"},
		},
		{
			name:  "numbers",
			input: "1 2.5 .5 1e3 4.0E-2",
			want:  []string{"INTEGER:1", "DECIMAL:2.5", "DECIMAL:.5", "DOUBLE:1e3", "DOUBLE:4.0E-2", "EOF:"},
		},
		{
			name:  "literal with language and datatype",
			input: `"chat"@fr 'x'^^xsd:string`,
			want:  []string{"STRING:chat", "LANGTAG:fr", "STRING:x", "PUNCT:^^", "PNAME:xsd:string", "EOF:"},
		},
		{
			name:  "long string and escapes",
			input: `"""a "quoted"
line""" "tab\thereé"`,
			want: []string{"STRING:a \"quoted\"\nline", "STRING:tab\thereé", "EOF:"},
		},
		{
			name:  "comments are skipped",
			input: "SELECT # pick everything\n*",
			want:  []string{"KEYWORD:SELECT", "PUNCT:*", "EOF:"},
		},
		{
			name:  "blank nodes and default prefix",
			input: "_:b1 :local",
			want:  []string{"BLANK_NODE:b1", "PNAME::local", "EOF:"},
		},
		{
			name:  "operators",
			input: "!?x && ?y || ?z != 1",
			want:  []string{"PUNCT:!", "VAR:x", "PUNCT:&&", "VAR:y", "PUNCT:||", "VAR:z", "PUNCT:!=", "INTEGER:1", "EOF:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, err := lex(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tokenTexts(toks))
		})
	}
}

func TestLex_Positions(t *testing.T) {
	toks, err := lex("SELECT *\n  WHERE {}")
	require.NoError(t, err)
	require.Len(t, toks, 6)

	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 1, toks[0].Column)
	assert.Equal(t, 1, toks[1].Line)
	assert.Equal(t, 8, toks[1].Column)
	assert.Equal(t, 2, toks[2].Line)
	assert.Equal(t, 3, toks[2].Column)
}

func TestLex_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unterminated string", `"abc`},
		{"newline in short string", "\"a\nb\""},
		{"bad escape", `"\q"`},
		{"empty variable", "? x"},
		{"stray character", "?s ~ ?o"},
		{"invalid utf-8 in literal", "\"\xff\xfe\""},
		{"invalid utf-8 in iri", "<http://e/\xc3>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lex(tt.input)
			require.Error(t, err)
			assert.True(t, IsParseError(err))
		})
	}
}
