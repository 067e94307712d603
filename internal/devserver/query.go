package devserver

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/rmacdonaldsmith/streamdash/pkg/event"
)

var (
	// ErrInvalidQuery is returned when query text cannot be compiled
	ErrInvalidQuery = errors.New("invalid query")
)

// Query is a compiled event filter
type Query interface {
	Match(ev *event.Event) bool
	String() string
}

// CompileQuery parses text in the subset of the Riemann query language
// the development server understands. Empty text matches nothing.
func CompileQuery(text string) (Query, error) {
	tokens, err := lex(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	if len(tokens) == 0 {
		return constant(false), nil
	}

	p := &parser{tokens: tokens}
	q, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	if !p.done() {
		return nil, fmt.Errorf("%w: unexpected %q", ErrInvalidQuery, p.peek().text)
	}
	return q, nil
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokNumber
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func lex(text string) ([]token, error) {
	var tokens []token
	runes := []rune(text)

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++

		case r == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
			i++
		case r == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
			i++

		case r == '"':
			var b strings.Builder
			j := i + 1
			for ; j < len(runes) && runes[j] != '"'; j++ {
				if runes[j] == '\\' && j+1 < len(runes) {
					j++
				}
				b.WriteRune(runes[j])
			}
			if j >= len(runes) {
				return nil, fmt.Errorf("unterminated string at %d", i)
			}
			tokens = append(tokens, token{kind: tokString, text: b.String(), pos: i})
			i = j + 1

		case strings.ContainsRune("=!<>~", r):
			j := i + 1
			for j < len(runes) && strings.ContainsRune("=~", runes[j]) {
				j++
			}
			op := string(runes[i:j])
			switch op {
			case "=", "!=", "=~", "<", "<=", ">", ">=":
			default:
				return nil, fmt.Errorf("unknown operator %q at %d", op, i)
			}
			tokens = append(tokens, token{kind: tokOp, text: op, pos: i})
			i = j

		case r == '-' || r == '.' || unicode.IsDigit(r):
			j := i + 1
			for j < len(runes) && (unicode.IsDigit(runes[j]) || strings.ContainsRune(".eE+-", runes[j])) {
				j++
			}
			tokens = append(tokens, token{kind: tokNumber, text: string(runes[i:j]), pos: i})
			i = j

		case r == '_' || unicode.IsLetter(r):
			j := i + 1
			for j < len(runes) && (runes[j] == '_' || unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j])) {
				j++
			}
			tokens = append(tokens, token{kind: tokIdent, text: string(runes[i:j]), pos: i})
			i = j

		default:
			return nil, fmt.Errorf("unexpected %q at %d", r, i)
		}
	}
	return tokens, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) done() bool  { return p.pos >= len(p.tokens) }
func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	p.pos++
	return t
}

// keyword consumes the identifier word if it is next
func (p *parser) keyword(word string) bool {
	if p.done() || p.peek().kind != tokIdent || p.peek().text != word {
		return false
	}
	p.pos++
	return true
}

func (p *parser) parseOr() (Query, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.keyword("or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = or{left, right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Query, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.keyword("and") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = and{left, right}
	}
	return left, nil
}

func (p *parser) parseNot() (Query, error) {
	if p.keyword("not") {
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return not{inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Query, error) {
	if p.done() {
		return nil, errors.New("unexpected end of query")
	}

	t := p.next()
	switch {
	case t.kind == tokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.done() || p.next().kind != tokRParen {
			return nil, fmt.Errorf("missing ) for ( at %d", t.pos)
		}
		return inner, nil

	case t.kind == tokIdent && t.text == "true":
		return constant(true), nil
	case t.kind == tokIdent && t.text == "false":
		return constant(false), nil

	case t.kind == tokIdent && t.text == "tagged":
		if p.done() || p.peek().kind != tokString {
			return nil, fmt.Errorf("tagged at %d needs a string", t.pos)
		}
		return tagged(p.next().text), nil

	case t.kind == tokIdent:
		return p.parseComparison(t.text)

	default:
		return nil, fmt.Errorf("unexpected %q at %d", t.text, t.pos)
	}
}

func (p *parser) parseComparison(field string) (Query, error) {
	if p.done() || p.peek().kind != tokOp {
		return nil, fmt.Errorf("expected operator after %q", field)
	}
	op := p.next().text
	if p.done() {
		return nil, fmt.Errorf("expected value after %s %s", field, op)
	}
	value := p.next()

	switch op {
	case "=", "!=":
		var q Query
		switch {
		case value.kind == tokIdent && (value.text == "nil" || value.text == "null"):
			q = absent(field)
		case value.kind == tokString:
			q = equals{field: field, value: value.text}
		case value.kind == tokNumber:
			n, err := strconv.ParseFloat(value.text, 64)
			if err != nil {
				return nil, fmt.Errorf("bad number %q", value.text)
			}
			q = compare{field: field, op: "=", value: n}
		default:
			return nil, fmt.Errorf("unexpected %q after %s %s", value.text, field, op)
		}
		if op == "!=" {
			return not{q}, nil
		}
		return q, nil

	case "=~":
		if value.kind != tokString {
			return nil, fmt.Errorf("%s =~ needs a string pattern", field)
		}
		return newLike(field, value.text), nil

	default:
		if value.kind != tokNumber {
			return nil, fmt.Errorf("%s %s needs a number", field, op)
		}
		n, err := strconv.ParseFloat(value.text, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", value.text)
		}
		return compare{field: field, op: op, value: n}, nil
	}
}

type constant bool

func (c constant) Match(*event.Event) bool { return bool(c) }
func (c constant) String() string          { return strconv.FormatBool(bool(c)) }

type and [2]Query

func (q and) Match(ev *event.Event) bool { return q[0].Match(ev) && q[1].Match(ev) }
func (q and) String() string             { return "(" + q[0].String() + " and " + q[1].String() + ")" }

type or [2]Query

func (q or) Match(ev *event.Event) bool { return q[0].Match(ev) || q[1].Match(ev) }
func (q or) String() string             { return "(" + q[0].String() + " or " + q[1].String() + ")" }

type not [1]Query

func (q not) Match(ev *event.Event) bool { return !q[0].Match(ev) }
func (q not) String() string             { return "(not " + q[0].String() + ")" }

type tagged string

func (q tagged) Match(ev *event.Event) bool { return ev.HasTag(string(q)) }
func (q tagged) String() string             { return "tagged " + strconv.Quote(string(q)) }

type absent string

func (q absent) Match(ev *event.Event) bool {
	_, ok := fieldString(ev, string(q))
	return !ok
}
func (q absent) String() string { return string(q) + " = nil" }

type equals struct {
	field, value string
}

func (q equals) Match(ev *event.Event) bool {
	v, ok := fieldString(ev, q.field)
	return ok && v == q.value
}
func (q equals) String() string { return q.field + " = " + strconv.Quote(q.value) }

type compare struct {
	field string
	op    string
	value float64
}

func (q compare) Match(ev *event.Event) bool {
	v, ok := fieldNumber(ev, q.field)
	if !ok {
		return false
	}
	switch q.op {
	case "=":
		return v == q.value
	case "<":
		return v < q.value
	case "<=":
		return v <= q.value
	case ">":
		return v > q.value
	case ">=":
		return v >= q.value
	}
	return false
}
func (q compare) String() string {
	return q.field + " " + q.op + " " + strconv.FormatFloat(q.value, 'g', -1, 64)
}

// like matches with % standing for any run of characters
type like struct {
	field   string
	pattern string
	re      *regexp.Regexp
}

func newLike(field, pattern string) like {
	parts := strings.Split(pattern, "%")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	return like{
		field:   field,
		pattern: pattern,
		re:      regexp.MustCompile("^" + strings.Join(parts, ".*") + "$"),
	}
}

func (q like) Match(ev *event.Event) bool {
	v, ok := fieldString(ev, q.field)
	return ok && q.re.MatchString(v)
}
func (q like) String() string { return q.field + " =~ " + strconv.Quote(q.pattern) }

// fieldString returns the textual value of a named field or attribute
func fieldString(ev *event.Event, field string) (string, bool) {
	switch field {
	case "host":
		return ev.Host, ev.Host != ""
	case "service":
		return ev.Service, ev.Service != ""
	case "state":
		return ev.State, ev.State != ""
	case "description":
		return ev.Description, ev.Description != ""
	case "metric", "metric_f", "ttl", "time":
		if n, ok := fieldNumber(ev, field); ok {
			return strconv.FormatFloat(n, 'g', -1, 64), true
		}
		return "", false
	}

	v, ok := ev.Attributes[field]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// fieldNumber returns the numeric value of a named field or attribute
func fieldNumber(ev *event.Event, field string) (float64, bool) {
	switch field {
	case "metric", "metric_f":
		return ev.MetricValue()
	case "ttl":
		if ev.TTL == nil {
			return 0, false
		}
		return *ev.TTL, true
	case "time":
		if ev.Time == nil {
			return 0, false
		}
		return float64(ev.Time.Unix()), true
	}

	switch v := ev.Attributes[field].(type) {
	case float64:
		return v, true
	case string:
		n, err := strconv.ParseFloat(v, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
