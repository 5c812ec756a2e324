package mcplugcfg

import "strings"

// StripJSONCComments removes `//` line comments and `/* */` block comments
// from s, leaving everything inside string literals untouched byte-for-byte
// and preserving every newline so downstream line numbers stay accurate
// (§4.6, testable property 5). Line comments are removed up to (not
// including) their terminating newline; block comments are removed except
// for their embedded newlines. Nothing is written in place of the removed
// bytes, so byte offsets shift but line counts never do.
func StripJSONCComments(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	runes := []rune(s)
	n := len(runes)
	inString := false
	var quote rune

	for i := 0; i < n; i++ {
		c := runes[i]

		if inString {
			out.WriteRune(c)
			if c == '\\' && i+1 < n {
				i++
				out.WriteRune(runes[i])
				continue
			}
			if c == quote {
				inString = false
			}
			continue
		}

		if c == '"' || c == '\'' {
			inString = true
			quote = c
			out.WriteRune(c)
			continue
		}

		if c == '/' && i+1 < n && runes[i+1] == '/' {
			i += 2
			for i < n && runes[i] != '\n' {
				i++
			}
			i--
			continue
		}

		if c == '/' && i+1 < n && runes[i+1] == '*' {
			i += 2
			for i < n && !(runes[i] == '*' && i+1 < n && runes[i+1] == '/') {
				if runes[i] == '\n' {
					out.WriteRune('\n')
				}
				i++
			}
			i++ // skip the matched '*'; the loop's i++ skips the '/'
			continue
		}

		out.WriteRune(c)
	}

	return out.String()
}
