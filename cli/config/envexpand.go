// Package config loads meshclient.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// envRef matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:-|:\?)([^}]*))?\}`)

// ExpandEnv substitutes environment references in input:
//
//	${VAR}          value of VAR, empty when unset
//	${VAR:-default} value of VAR, or default when unset or empty
//	${VAR:?message} value of VAR; unset or empty is an error carrying message
//
// Mailbox passwords and shared keys are normally injected this way.
// Every missing required variable is reported, not just the first.
func ExpandEnv(input string) (string, error) {
	var (
		b    strings.Builder
		errs []error
		last int
	)
	for _, m := range envRef.FindAllStringSubmatchIndex(input, -1) {
		b.WriteString(input[last:m[0]])
		last = m[1]

		name := input[m[2]:m[3]]
		if value := os.Getenv(name); value != "" {
			b.WriteString(value)
			continue
		}
		if m[4] < 0 {
			continue
		}
		op, arg := input[m[4]:m[5]], input[m[6]:m[7]]
		if op == ":-" {
			b.WriteString(arg)
			continue
		}
		if arg == "" {
			arg = "required but not set"
		}
		errs = append(errs, fmt.Errorf("${%s}: %s", name, arg))
	}
	b.WriteString(input[last:])
	return b.String(), errors.Join(errs...)
}
