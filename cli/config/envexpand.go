// Package config loads studio.yaml, the optional defaults file for the
// studio CLI.
package config

import (
	"os"
	"regexp"
	"strings"
)

// envRef matches ${VAR}, ${VAR-default} and ${VAR:-default}.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:?-)([^}]*))?\}`)

// ExpandEnv substitutes environment references in input, POSIX style:
// ${VAR:-default} falls back when VAR is unset or empty, ${VAR-default}
// only when VAR is unset. A bare ${VAR} that is unset expands to "".
// Substituted values are not expanded again.
func ExpandEnv(input string) string {
	matches := envRef.FindAllStringSubmatchIndex(input, -1)
	if matches == nil {
		return input
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(input[last:m[0]])
		last = m[1]

		name := input[m[2]:m[3]]
		value, set := os.LookupEnv(name)
		if m[4] < 0 {
			b.WriteString(value)
			continue
		}
		op, fallback := input[m[4]:m[5]], input[m[6]:m[7]]
		if !set || (op == ":-" && value == "") {
			value = fallback
		}
		b.WriteString(value)
	}
	b.WriteString(input[last:])
	return b.String()
}
