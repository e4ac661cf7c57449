// Package interpolator resolves {{ name }} tokens in templates against a
// variable context, falling back to environment variables.
package interpolator

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/torosent/harraw/internal/variables"
)

var (
	// ErrUnknownVariable is returned in strict mode when a token has no binding.
	ErrUnknownVariable = errors.New("unknown variable")
	// ErrInterpolationNotAllowed is returned when a structural field carries a token.
	ErrInterpolationNotAllowed = errors.New("interpolations not supported")
)

// tokenPattern accepts an identifier followed by dotted or bracket-indexed path
// segments. Tokens starting with a digit do not match and are left verbatim.
const tokenPattern = `\{\{\s*([a-zA-Z]+[a-zA-Z\-._$0-9\[\]]*)\s*\}\}`

// Warner receives warnings for tokens left unresolved in relaxed mode.
type Warner interface {
	Warn(format string, args ...any)
}

// Matcher recognizes interpolation tokens. It holds no mutable state and may be
// shared freely.
type Matcher struct {
	re *regexp.Regexp
}

// NewMatcher compiles the token pattern.
func NewMatcher() *Matcher {
	return &Matcher{re: regexp.MustCompile(tokenPattern)}
}

// Match reports whether s contains at least one token.
func (m *Matcher) Match(s string) bool {
	return m.re.MatchString(s)
}

// Names returns the variable names referenced by s, in order of appearance.
func (m *Matcher) Names(s string) []string {
	var names []string
	for _, sub := range m.re.FindAllStringSubmatch(s, -1) {
		names = append(names, sub[1])
	}
	return names
}

// Forbid returns an error when value contains a token. property names the field
// in the error message.
func (m *Matcher) Forbid(property, value string) error {
	if m.Match(value) {
		return fmt.Errorf("%w in '%s' property", ErrInterpolationNotAllowed, property)
	}
	return nil
}

// Interpolator resolves templates. It is safe for concurrent use as long as each
// caller passes its own variable context.
type Interpolator struct {
	matcher *Matcher
	warn    Warner
}

// New creates an Interpolator. warn may be nil to drop relaxed-mode warnings.
func New(warn Warner) *Interpolator {
	return &Interpolator{matcher: NewMatcher(), warn: warn}
}

// Matcher returns the token matcher used by the interpolator.
func (i *Interpolator) Matcher() *Matcher {
	return i.matcher
}

// Resolve substitutes every token in template. Each name is looked up in vars
// first, then in the process environment. An unresolved name is an error when
// strict is set; otherwise it becomes an empty string and a warning is emitted.
func (i *Interpolator) Resolve(template string, vars *variables.Context, strict bool) (string, error) {
	matches := i.matcher.re.FindAllStringSubmatchIndex(template, -1)
	if len(matches) == 0 {
		return template, nil
	}

	var b strings.Builder
	last := 0
	for _, loc := range matches {
		b.WriteString(template[last:loc[0]])
		name := template[loc[2]:loc[3]]

		value, ok := lookupContext(vars, name)
		if !ok {
			value, ok = os.LookupEnv(name)
		}
		if !ok {
			if strict {
				return "", fmt.Errorf("%w '%s'", ErrUnknownVariable, name)
			}
			if i.warn != nil {
				i.warn.Warn("Unknown '%s' variable!", name)
			}
			value = ""
		}

		b.WriteString(value)
		last = loc[1]
	}
	b.WriteString(template[last:])
	return b.String(), nil
}

// lookupContext renders the value at path: null as "", scalars in canonical form,
// arrays and objects as compact JSON.
func lookupContext(vars *variables.Context, path string) (string, bool) {
	if vars == nil {
		return "", false
	}
	result, ok := vars.Lookup(path)
	if !ok {
		return "", false
	}
	return result.String(), true
}
