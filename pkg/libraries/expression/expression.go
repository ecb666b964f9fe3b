// Package expression compiles map filter expressions such as
// "([CLASS] = 3) or ([CLASS] = 4)" into evaluable predicates.
//
// Attribute references are written in square brackets. The comparison
// operator "=" and the keywords "and", "or" and "not" are rewritten to their
// govaluate equivalents before compilation.
package expression

import (
	"fmt"
	"github.com/casbin/govaluate"
	"strconv"
	"strings"
)

// Attributes holds the values referenced by an expression. Numbers must be
// float64 for comparisons with numeric literals to succeed.
type Attributes map[string]any

type Expression struct {
	source    string
	evaluable *govaluate.EvaluableExpression
	vars      []string
}

func Compile(source string) (*Expression, error) {
	rewritten, err := rewrite(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expression %q: %w", source, err)
	}

	evaluable, err := govaluate.NewEvaluableExpression(rewritten)
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression %q: %w", source, err)
	}

	return &Expression{
		source:    source,
		evaluable: evaluable,
		vars:      evaluable.Vars(),
	}, nil
}

func MustCompile(source string) *Expression {
	expr, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return expr
}

func (e *Expression) String() string {
	return e.source
}

// Evaluate returns the raw value of the expression. Attributes missing from
// attrs evaluate as nil.
func (e *Expression) Evaluate(attrs Attributes) (any, error) {
	params := make(map[string]interface{}, len(e.vars))
	for _, name := range e.vars {
		params[name] = attrs[name]
	}

	return e.evaluable.Evaluate(params)
}

// Match reports whether the expression evaluates to a truthy value.
// Evaluation errors, for example comparing a string with a number, count
// as no match.
func (e *Expression) Match(attrs Attributes) bool {
	result, err := e.Evaluate(attrs)
	if err != nil {
		return false
	}

	return truthy(result)
}

// Text evaluates the expression and formats the result for labelling.
func (e *Expression) Text(attrs Attributes) string {
	result, err := e.Evaluate(attrs)
	if err != nil || result == nil {
		return ""
	}

	switch v := result.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

var keywords = map[string]string{
	"and": "&&",
	"or":  "||",
	"not": "!",
}

// rewrite translates the map filter dialect into govaluate syntax while
// leaving quoted strings and bracketed attribute names untouched.
func rewrite(source string) (string, error) {
	var b strings.Builder
	runes := []rune(source)

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch {
		case r == '\'' || r == '"':
			end := i + 1
			for end < len(runes) && runes[end] != r {
				if runes[end] == '\\' {
					end++
				}
				end++
			}
			if end >= len(runes) {
				return "", fmt.Errorf("unterminated string starting at %d", i)
			}
			b.WriteString(string(runes[i : end+1]))
			i = end

		case r == '[':
			end := i + 1
			for end < len(runes) && runes[end] != ']' {
				end++
			}
			if end >= len(runes) {
				return "", fmt.Errorf("unterminated attribute starting at %d", i)
			}
			b.WriteString(string(runes[i : end+1]))
			i = end

		case r == '=':
			if i+1 < len(runes) && runes[i+1] == '=' {
				b.WriteString("==")
				i++
			} else if i+1 < len(runes) && runes[i+1] == '~' {
				b.WriteString("=~")
				i++
			} else {
				b.WriteString("==")
			}

		case r == '!' || r == '<' || r == '>':
			if r == '<' && i+1 < len(runes) && runes[i+1] == '>' {
				b.WriteString("!=")
				i++
				continue
			}
			b.WriteRune(r)
			if i+1 < len(runes) && (runes[i+1] == '=' || (r == '!' && runes[i+1] == '~')) {
				b.WriteRune(runes[i+1])
				i++
			}

		case isIdentStart(r):
			end := i
			for end < len(runes) && isIdentPart(runes[end]) {
				end++
			}
			word := string(runes[i:end])
			if op, ok := keywords[strings.ToLower(word)]; ok {
				b.WriteString(" " + op + " ")
			} else {
				b.WriteString(word)
			}
			i = end - 1

		default:
			b.WriteRune(r)
		}
	}

	return b.String(), nil
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}
