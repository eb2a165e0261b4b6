package planner

import (
	"errors"
	"strconv"
	"strings"
)

// fragment is a piece of rendered SQL with its bound args, in text order.
// It satisfies squirrel's Sqlizer.
type fragment struct {
	sql  string
	args []interface{}
}

func (f fragment) ToSql() (string, []interface{}, error) {
	return f.sql, f.args, nil
}

func raw(sql string) fragment { return fragment{sql: sql} }

func bound(placeholder string, v interface{}) fragment {
	return fragment{sql: placeholder, args: []interface{}{v}}
}

// compose concatenates strings and fragments.
func compose(parts ...interface{}) fragment {
	var b strings.Builder
	var args []interface{}
	for _, p := range parts {
		switch v := p.(type) {
		case string:
			b.WriteString(v)
		case fragment:
			b.WriteString(v.sql)
			args = append(args, v.args...)
		}
	}
	return fragment{sql: b.String(), args: args}
}

func joinFragments(frags []fragment, sep string) fragment {
	parts := make([]interface{}, 0, 2*len(frags))
	for i, f := range frags {
		if i > 0 {
			parts = append(parts, sep)
		}
		parts = append(parts, f)
	}
	return compose(parts...)
}

// renderFunc renders a function application from its rendered arguments.
type renderFunc func(args []fragment) (fragment, error)

// errNoRendering marks a function the dialect cannot express.
var errNoRendering = errors.New("no rendering")

// tmpl renders from a template in which {n} stands for the n-th argument.
// An argument may appear more than once; its args are repeated accordingly.
func tmpl(t string) renderFunc {
	return func(args []fragment) (fragment, error) {
		var parts []interface{}
		rest := t
		for {
			open := strings.IndexByte(rest, '{')
			if open < 0 {
				break
			}
			end := strings.IndexByte(rest[open:], '}')
			if end < 0 {
				break
			}
			n, err := strconv.Atoi(rest[open+1 : open+end])
			if err != nil || n >= len(args) {
				return fragment{}, errNoRendering
			}
			parts = append(parts, rest[:open], args[n])
			rest = rest[open+end+1:]
		}
		parts = append(parts, rest)
		return compose(parts...), nil
	}
}

// variadic renders open arg1 sep arg2 ... close.
func variadic(open, sep, close string) renderFunc {
	return func(args []fragment) (fragment, error) {
		return compose(open, joinFragments(args, sep), close), nil
	}
}

// byArity picks a rendering by argument count.
func byArity(forms map[int]renderFunc) renderFunc {
	return func(args []fragment) (fragment, error) {
		f, ok := forms[len(args)]
		if !ok {
			return fragment{}, errNoRendering
		}
		return f(args)
	}
}

func unsupported(args []fragment) (fragment, error) {
	return fragment{}, errNoRendering
}
