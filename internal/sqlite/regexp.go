package sqlite

import (
	"fmt"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/mesh-intelligence/embedsql/pkg/types"
)

// registerBuiltins installs the functions every connection carries.
func registerBuiltins(c *Conn) error {
	return c.register(&function{
		reg:      types.FunctionRegistration{Name: "regexp", Arity: 2, Deterministic: true, Kind: types.Scalar},
		scalar:   regexpMatcher(c.regexpTimeout),
		textArgs: true,
	})
}

// regexpMatcher returns the function behind both regexp(pattern, subject)
// and the "subject REGEXP pattern" operator. It returns 1 on a match, 0
// otherwise, and NULL when either argument is NULL. The pattern syntax is
// the Perl-compatible dialect of regexp2, which includes lookaround. A match
// running longer than timeout fails.
func regexpMatcher(timeout time.Duration) ScalarFunc {
	return func(args []types.Value) (any, error) {
		pattern, subject := args[0], args[1]
		if pattern.IsNull() || subject.IsNull() {
			return nil, nil
		}
		re, err := regexp2.Compile(asText(pattern), regexp2.None)
		if err != nil {
			return nil, fmt.Errorf("compile pattern: %w", err)
		}
		re.MatchTimeout = timeout
		matched, err := re.MatchString(asText(subject))
		if err != nil {
			return nil, fmt.Errorf("match: %w", err)
		}
		return matched, nil
	}
}

// asText reads a Text or Blob argument as a string. Numeric arguments
// already arrive as the engine's text.
func asText(v types.Value) string {
	if v.Kind() == types.KindBlob {
		return string(v.Blob())
	}
	return v.Text()
}
