package mcplugcfg

import (
	"fmt"
	"os"
	"strings"
)

// ExpandEnvVars implements the expansion grammars of §4.6:
//
//	${NAME}          -> value of NAME; error if unset
//	${NAME:-DEFAULT} -> value of NAME; DEFAULT if NAME unset or empty
//	$env:NAME        -> identical to ${NAME}; NAME is [A-Za-z0-9_]+
//	lone '$'         -> emitted verbatim
//	unclosed '${'    -> error
//
// The errors returned here are plain errors; Loader.Load reports them as a
// ConfigError naming the server.
func ExpandEnvVars(s string) (string, error) {
	var out strings.Builder
	runes := []rune(s)
	n := len(runes)

	for i := 0; i < n; i++ {
		c := runes[i]
		if c != '$' {
			out.WriteRune(c)
			continue
		}

		if i+1 < n && runes[i+1] == '{' {
			end := indexRune(runes, i+2, '}')
			if end == -1 {
				return "", fmt.Errorf("unclosed \"${\" in %q", s)
			}
			body := string(runes[i+2 : end])
			val, err := resolveBracedVar(body)
			if err != nil {
				return "", err
			}
			out.WriteString(val)
			i = end
			continue
		}

		if i+4 < n && string(runes[i+1:i+5]) == "env:" {
			j := i + 5
			start := j
			for j < n && isEnvNameRune(runes[j]) {
				j++
			}
			name := string(runes[start:j])
			if name == "" {
				out.WriteRune(c)
				continue
			}
			val, ok := os.LookupEnv(name)
			if !ok {
				return "", fmt.Errorf("environment variable %q is not set", name)
			}
			out.WriteString(val)
			i = j - 1
			continue
		}

		// Lone '$' not matching any grammar is emitted verbatim.
		out.WriteRune(c)
	}

	return out.String(), nil
}

func resolveBracedVar(body string) (string, error) {
	if idx := strings.Index(body, ":-"); idx != -1 {
		name := body[:idx]
		def := body[idx+2:]
		val := os.Getenv(name)
		if val == "" {
			return def, nil
		}
		return val, nil
	}
	val, ok := os.LookupEnv(body)
	if !ok {
		return "", fmt.Errorf("environment variable %q is not set", body)
	}
	return val, nil
}

func isEnvNameRune(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_'
}

func indexRune(runes []rune, from int, target rune) int {
	for i := from; i < len(runes); i++ {
		if runes[i] == target {
			return i
		}
	}
	return -1
}
