// Package argsyntax implements the CLI argument grammar of spec §4.7: flat
// key:value/key=value tokens, the server.tool(...) function-call syntax,
// and Levenshtein-distance tool-name suggestion. Ported from the original
// Rust implementation's src/args.rs (parse_args/parse_function_call/
// suggest_tool) into the teacher's error-wrapping idiom, using
// mcplugerr.ProtocolError in place of bespoke McplugError::ProtocolError
// variants.
package argsyntax

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hydai/mcplug/mcplugerr"
)

// ParseToolRef splits "server.tool" on the first '.'.
func ParseToolRef(input string) (server, tool string, err error) {
	dot := strings.Index(input, ".")
	if dot == -1 {
		return "", "", mcplugerr.NewProtocolError(fmt.Sprintf("invalid tool reference %q: expected 'server.tool' format", input))
	}
	server, tool = input[:dot], input[dot+1:]
	if server == "" || tool == "" {
		return "", "", mcplugerr.NewProtocolError(fmt.Sprintf("invalid tool reference %q: server and tool names must be non-empty", input))
	}
	return server, tool, nil
}

// ParseArgs parses a flat sequence of "key:value"/"key=value" tokens into a
// JSON object, one field per token (§4.7a, testable property 1).
func ParseArgs(args []string) (map[string]interface{}, error) {
	result := map[string]interface{}{}
	for _, arg := range args {
		key, rawValue, err := splitKeyValue(arg)
		if err != nil {
			return nil, err
		}
		if key == "" {
			return nil, mcplugerr.NewProtocolError(fmt.Sprintf("empty key in argument %q", arg))
		}
		result[key] = coerceValue(rawValue)
	}
	return result, nil
}

// splitKeyValue splits on the FIRST ':' if present, else the first '='.
func splitKeyValue(arg string) (key, value string, err error) {
	if pos := strings.Index(arg, ":"); pos != -1 {
		return arg[:pos], arg[pos+1:], nil
	}
	if pos := strings.Index(arg, "="); pos != -1 {
		return arg[:pos], arg[pos+1:], nil
	}
	return "", "", mcplugerr.NewProtocolError(fmt.Sprintf("cannot parse argument %q: expected 'key:value' or 'key=value'", arg))
}

// coerceValue applies the coercion table of §4.7: quoted string, bool,
// null, int64, float64, embedded JSON, or bare string fallback. Embedded
// JSON that fails to parse falls back to a bare string here (flat-arg
// coercion is lenient; ParseFunctionCall's inner coercion is not).
func coerceValue(raw string) interface{} {
	if v, ok := stripQuotes(raw); ok {
		return v
	}
	if strings.EqualFold(raw, "true") {
		return true
	}
	if strings.EqualFold(raw, "false") {
		return false
	}
	if raw == "null" {
		return nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if looksLikeJSONContainer(raw) {
		var v interface{}
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			return v
		}
	}
	return raw
}

func stripQuotes(raw string) (string, bool) {
	if len(raw) >= 2 {
		if (strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`)) ||
			(strings.HasPrefix(raw, "'") && strings.HasSuffix(raw, "'")) {
			return raw[1 : len(raw)-1], true
		}
	}
	return "", false
}

func looksLikeJSONContainer(raw string) bool {
	return (strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}")) ||
		(strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]"))
}

// ParseFunctionCall parses "server.tool(inner)" into (server, tool, args),
// where args is either a map[string]interface{} (named) or a
// []interface{} (positional) (§4.7b, S2/S3).
func ParseFunctionCall(input string) (server, tool string, args interface{}, err error) {
	parenOpen := strings.Index(input, "(")
	if parenOpen == -1 {
		return "", "", nil, mcplugerr.NewProtocolError(fmt.Sprintf("invalid function call %q: missing '('", input))
	}
	if !strings.HasSuffix(input, ")") {
		return "", "", nil, mcplugerr.NewProtocolError(fmt.Sprintf("invalid function call %q: missing closing ')'", input))
	}

	refPart := input[:parenOpen]
	server, tool, err = ParseToolRef(refPart)
	if err != nil {
		return "", "", nil, err
	}

	argsStr := strings.TrimSpace(input[parenOpen+1 : len(input)-1])
	if argsStr == "" {
		return server, tool, map[string]interface{}{}, nil
	}

	args, err = parseInnerArgs(argsStr)
	if err != nil {
		return "", "", nil, err
	}
	return server, tool, args, nil
}

// parseInnerArgs splits argsStr on top-level commas and decides named vs.
// positional based on whether any part has an unquoted "key:" separator.
func parseInnerArgs(argsStr string) (interface{}, error) {
	parts := splitArgs(argsStr)
	if len(parts) == 0 {
		return map[string]interface{}{}, nil
	}

	named := false
	for _, p := range parts {
		if findNamedSeparator(strings.TrimSpace(p)) != -1 {
			named = true
			break
		}
	}

	if named {
		result := map[string]interface{}{}
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			pos := findNamedSeparator(trimmed)
			if pos == -1 {
				return nil, mcplugerr.NewProtocolError(fmt.Sprintf("mixed named and positional arguments: %q", trimmed))
			}
			key := strings.TrimSpace(trimmed[:pos])
			valStr := strings.TrimSpace(trimmed[pos+1:])
			val, err := parseInnerValue(valStr)
			if err != nil {
				return nil, err
			}
			result[key] = val
		}
		return result, nil
	}

	result := make([]interface{}, 0, len(parts))
	for _, p := range parts {
		val, err := parseInnerValue(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		result = append(result, val)
	}
	return result, nil
}

// parseInnerValue is like coerceValue, but embedded JSON objects/arrays
// that fail to parse surface as a ProtocolError rather than falling back
// to a bare string (§4.7b).
func parseInnerValue(input string) (interface{}, error) {
	if v, ok := stripQuotes(input); ok {
		return v, nil
	}
	if strings.EqualFold(input, "true") {
		return true, nil
	}
	if strings.EqualFold(input, "false") {
		return false, nil
	}
	if input == "null" {
		return nil, nil
	}
	if n, err := strconv.ParseInt(input, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(input, 64); err == nil {
		return f, nil
	}
	if looksLikeJSONContainer(input) {
		var v interface{}
		if err := json.Unmarshal([]byte(input), &v); err != nil {
			return nil, mcplugerr.NewProtocolError(fmt.Sprintf("invalid JSON in argument: %v", err))
		}
		return v, nil
	}
	return input, nil
}

// splitArgs splits a comma-separated argument string respecting nesting in
// matched {}/[] and matched "/' quotes.
func splitArgs(input string) []string {
	var parts []string
	var current strings.Builder
	var inQuote rune
	depth := 0

	for _, ch := range input {
		if inQuote != 0 {
			current.WriteRune(ch)
			if ch == inQuote {
				inQuote = 0
			}
			continue
		}
		switch ch {
		case '"', '\'':
			inQuote = ch
			current.WriteRune(ch)
		case '{', '[':
			depth++
			current.WriteRune(ch)
		case '}', ']':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				parts = append(parts, current.String())
				current.Reset()
				continue
			}
			current.WriteRune(ch)
		default:
			current.WriteRune(ch)
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		parts = append(parts, current.String())
	}
	return parts
}

// findNamedSeparator returns the index of the unquoted ':' that is
// preceded by a bare identifier ([A-Za-z0-9_-]+), or -1 if none. If the
// part opens with a quote, it is unambiguously positional.
func findNamedSeparator(input string) int {
	var inQuote rune
	runes := []rune(input)
	for i, ch := range runes {
		if inQuote != 0 {
			if ch == inQuote {
				inQuote = 0
			}
			continue
		}
		switch ch {
		case '"', '\'':
			if i == 0 {
				return -1
			}
			inQuote = ch
		case ':':
			key := strings.TrimSpace(string(runes[:i]))
			if key != "" && isBareIdentifier(key) {
				return i
			}
		}
	}
	return -1
}

func isBareIdentifier(s string) bool {
	for _, c := range s {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-') {
			return false
		}
	}
	return true
}

// SuggestTool returns the uniquely-closest known tool name to input by
// Levenshtein distance, provided its distance is <= 2 and no other
// candidate ties it (§4.7, testable property 8).
func SuggestTool(input string, knownTools []string) (string, bool) {
	bestDist := -1
	bestTool := ""
	ambiguous := false

	for _, tool := range knownTools {
		dist := levenshtein(input, tool)
		switch {
		case bestDist == -1 || dist < bestDist:
			bestDist = dist
			bestTool = tool
			ambiguous = false
		case dist == bestDist:
			ambiguous = true
		}
	}

	if bestDist != -1 && bestDist <= 2 && !ambiguous {
		return bestTool, true
	}
	return "", false
}

// levenshtein computes the edit distance between a and b.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
