package interaction

import (
	"errors"
	"fmt"
	"strings"
)

// Token separator. Colon never appears in the values this core round-trips
// (IANA timezone names, language codes, step tags), unlike underscore.
const tokenSep = ":"

// ErrBadToken is returned for any custom ID this codec did not produce.
// Callers treat it as a signal to ignore the interaction, never as a fault.
var ErrBadToken = errors.New("interaction: malformed token")

// Token is the decoded form of a flow custom ID: which step produced it plus
// the field values collected by the steps before it.
type Token struct {
	Flow   string
	Step   string
	Fields []string
}

// Codec encodes multi-step flow state into component custom IDs and back.
// Each flow owns a fixed prefix, keeping its tokens collision-free against
// every other flow, and declares the exact field arity of each step so
// malformed or foreign tokens are rejected instead of misparsed.
type Codec struct {
	flow  string
	steps map[string]int
}

// NewCodec builds a codec for the named flow. steps maps each step tag to the
// number of fields a token produced by that step carries.
func NewCodec(flow string, steps map[string]int) Codec {
	if flow == "" || strings.Contains(flow, tokenSep) {
		panic("interaction: invalid flow prefix")
	}
	for tag := range steps {
		if tag == "" || strings.Contains(tag, tokenSep) {
			panic("interaction: invalid step tag")
		}
	}
	return Codec{flow: flow, steps: steps}
}

// Owns reports whether the custom ID belongs to this codec's flow. It is a
// routing hint only; Decode still validates the full token.
func (c Codec) Owns(customID string) bool {
	return customID == c.flow || strings.HasPrefix(customID, c.flow+tokenSep)
}

// Encode produces the custom ID for step carrying the given fields.
func (c Codec) Encode(step string, fields ...string) (string, error) {
	arity, ok := c.steps[step]
	if !ok {
		return "", fmt.Errorf("interaction: unknown step %q in flow %q", step, c.flow)
	}
	if len(fields) != arity {
		return "", fmt.Errorf("interaction: step %q wants %d fields, got %d", step, arity, len(fields))
	}
	for _, f := range fields {
		if f == "" || strings.Contains(f, tokenSep) {
			return "", fmt.Errorf("interaction: field %q not encodable", f)
		}
	}
	parts := append([]string{c.flow, step}, fields...)
	return strings.Join(parts, tokenSep), nil
}

// Decode parses a custom ID previously produced by Encode. Wrong prefix,
// unknown step tag, or wrong arity all yield ErrBadToken.
func (c Codec) Decode(customID string) (Token, error) {
	parts := strings.Split(customID, tokenSep)
	if len(parts) < 2 || parts[0] != c.flow {
		return Token{}, fmt.Errorf("%w: %q", ErrBadToken, customID)
	}
	step := parts[1]
	arity, ok := c.steps[step]
	if !ok {
		return Token{}, fmt.Errorf("%w: unknown step in %q", ErrBadToken, customID)
	}
	fields := parts[2:]
	if len(fields) != arity {
		return Token{}, fmt.Errorf("%w: arity mismatch in %q", ErrBadToken, customID)
	}
	for _, f := range fields {
		if f == "" {
			return Token{}, fmt.Errorf("%w: empty field in %q", ErrBadToken, customID)
		}
	}
	return Token{Flow: c.flow, Step: step, Fields: fields}, nil
}
