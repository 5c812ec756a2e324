package mcplugcfg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripJSONCLineComments(t *testing.T) {
	in := `{
  "a": 1, // trailing comment
  "b": "http://example.com" // another
}`
	got := StripJSONCComments(in)
	assert.Contains(t, got, `"b": "http://example.com"`)
	assert.NotContains(t, got, "trailing comment")
	assert.Equal(t, strings.Count(in, "\n"), strings.Count(got, "\n"))
}

func TestStripJSONCBlockComments(t *testing.T) {
	in := "{\n  /* a\n  multi-line\n  comment */\n  \"a\": 1\n}"
	got := StripJSONCComments(in)
	assert.NotContains(t, got, "multi-line")
	assert.Equal(t, strings.Count(in, "\n"), strings.Count(got, "\n"))
}

func TestStripJSONCPreservesStringContents(t *testing.T) {
	in := `{"note": "contains // not a comment and /* not either */"}`
	got := StripJSONCComments(in)
	assert.Contains(t, got, "contains // not a comment and /* not either */")
}

func TestStripJSONCPreservesEscapedQuotesInsideStrings(t *testing.T) {
	in := `{"note": "a \"quoted\" // still a string"}`
	got := StripJSONCComments(in)
	assert.Contains(t, got, `a \"quoted\" // still a string`)
}
