package policy

import "fmt"

// ParseError reports that a policy document was malformed or referenced an
// unknown key.
type ParseError struct {
	Source string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("policy parse error in %s: %s", e.Source, e.Reason)
}

func (e *ParseError) Kind() string { return "PolicyParseError" }
