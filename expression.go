/*
Package requestkit – expression template formatting.

A template is a condition / update / key-condition string carrying
positional tokens of the form {index} or {index:format}. Each token is
replaced by a generated value placeholder and the converted argument is
registered in the session's parameter table. Pre-existing ":name"
tokens pass through untouched, so caller-named and positional
parameters mix freely in one expression.
*/
package requestkit

import (
	"fmt"
	"regexp"
	"strconv"
)

var placeholderRe = regexp.MustCompile(`\{(\d+)(?::([^{}]*))?\}`)

// ExpressionFormatter rewrites expression templates against one
// parameter session.
type ExpressionFormatter struct {
	gen   *ParamGenerator
	table *ParamTable
}

// NewExpressionFormatter binds a formatter to a generator and table.
func NewExpressionFormatter(g *ParamGenerator, t *ParamTable) *ExpressionFormatter {
	return &ExpressionFormatter{gen: g, table: t}
}

// Table returns the parameter table backing this formatter.
func (f *ExpressionFormatter) Table() *ParamTable { return f.table }

// Format substitutes every positional token in template, converting and
// registering args as it goes, and returns the finished expression. A
// nil argument registers as NULL. An index at or beyond len(args) is an
// ArgumentError naming the index and the argument count.
func (f *ExpressionFormatter) Format(template string, args ...any) (string, error) {
	if template == "" {
		return "", NewArgError("empty expression template")
	}

	var firstErr error
	out := placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		if firstErr != nil {
			return m
		}
		sub := placeholderRe.FindStringSubmatch(m)
		idx, err := strconv.Atoi(sub[1])
		if err != nil {
			firstErr = NewArgError(fmt.Sprintf("invalid placeholder %q", m))
			return m
		}
		if idx >= len(args) {
			firstErr = NewArgError(fmt.Sprintf(
				"placeholder index %d is out of range: %d argument(s) supplied", idx, len(args)))
			return m
		}
		name, err := AddFormattedValue(f.table, f.gen, args[idx], sub[2])
		if err != nil {
			firstErr = err
			return m
		}
		return name
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}
