package criteria

import (
	"strings"

	"sqlcriteria/internal/sqltype"
)

// FuncExpr is a function application. Catalog functions are rendered through
// per-dialect templates; Verbatim functions are emitted as name(args...).
type FuncExpr struct {
	node
	Name string
	Args []Expression
	// Option carries the non-expression argument of trim, pad, extract,
	// truncate_time and duration conversions.
	Option   string
	Verbatim bool
}

func (e *FuncExpr) String() string {
	name := e.Name
	if e.Option != "" {
		name += "[" + strings.ToLower(e.Option) + "]"
	}
	return name + "(" + describeList(e.Args) + ")"
}

func call(name string, kind sqltype.Kind, args ...Expression) *FuncExpr {
	return &FuncExpr{node: node{kind: kind}, Name: name, Args: args}
}

// expect records a type mismatch when the argument at idx fails accept.
func (e *FuncExpr) expect(idx int, accept func(sqltype.Kind) bool, want string) *FuncExpr {
	if e.err != nil || idx >= len(e.Args) {
		return e
	}
	if k := e.Args[idx].Kind(); k != sqltype.Unknown && !accept(k) {
		e.err = buildError(ErrTypeMismatch, e.String(), "argument %d must be %s, got %s", idx+1, want, k)
	}
	return e
}

func (e *FuncExpr) expectAll(accept func(sqltype.Kind) bool, want string) *FuncExpr {
	for i := range e.Args {
		e.expect(i, accept, want)
	}
	return e
}

func isNumber(k sqltype.Kind) bool { return k.Numeric() && k != sqltype.Duration }
func isInteger(k sqltype.Kind) bool { return k == sqltype.Integer }
func isText(k sqltype.Kind) bool { return k.Textual() }
func isTemporal(k sqltype.Kind) bool {
	return k.Temporal()
}
func isDuration(k sqltype.Kind) bool { return k == sqltype.Duration }

func numeric1(name string, kind sqltype.Kind, x Expression) Expression {
	if kind == sqltype.Unknown {
		kind = x.Kind()
	}
	return call(name, kind, x).expect(0, isNumber, "numeric")
}

// Function is the escape hatch for store-specific functions. The name is
// emitted verbatim, so it must come from code, never from user input.
func Function(name string, kind sqltype.Kind, args ...Expression) Expression {
	e := call(name, kind, args...)
	e.Verbatim = true
	if !isIdentifier(name) {
		e.err = buildError(ErrUnknownAttribute, name, "function name must be a plain identifier")
	}
	return e
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// Coalesce returns the first non-null argument.
func Coalesce(first Expression, rest ...Expression) Expression {
	args := append([]Expression{first}, rest...)
	kind := first.Kind()
	e := call("coalesce", kind, args...)
	for _, arg := range rest {
		widened, ok := sqltype.Widest(kind, arg.Kind())
		if !ok {
			e.err = buildError(ErrTypeMismatch, e.String(), "cannot coalesce %s with %s", kind, arg.Kind())
			break
		}
		kind = widened
	}
	e.kind = kind
	return e
}

// Math.

func Abs(x Expression) Expression { return numeric1("abs", sqltype.Unknown, x) }
func Sign(x Expression) Expression { return numeric1("sign", sqltype.Integer, x) }
func Sqrt(x Expression) Expression { return numeric1("sqrt", sqltype.Float, x) }
func Exp(x Expression) Expression { return numeric1("exp", sqltype.Float, x) }
func Ln(x Expression) Expression { return numeric1("ln", sqltype.Float, x) }
func Log10(x Expression) Expression { return numeric1("log10", sqltype.Float, x) }
func Ceiling(x Expression) Expression { return numeric1("ceiling", sqltype.Unknown, x) }
func Floor(x Expression) Expression { return numeric1("floor", sqltype.Unknown, x) }
func Sin(x Expression) Expression { return numeric1("sin", sqltype.Float, x) }
func Cos(x Expression) Expression { return numeric1("cos", sqltype.Float, x) }
func Tan(x Expression) Expression { return numeric1("tan", sqltype.Float, x) }
func Asin(x Expression) Expression { return numeric1("asin", sqltype.Float, x) }
func Acos(x Expression) Expression { return numeric1("acos", sqltype.Float, x) }
func Atan(x Expression) Expression { return numeric1("atan", sqltype.Float, x) }
func Sinh(x Expression) Expression { return numeric1("sinh", sqltype.Float, x) }
func Cosh(x Expression) Expression { return numeric1("cosh", sqltype.Float, x) }
func Tanh(x Expression) Expression { return numeric1("tanh", sqltype.Float, x) }
func Degrees(x Expression) Expression { return numeric1("degrees", sqltype.Float, x) }
func Radians(x Expression) Expression { return numeric1("radians", sqltype.Float, x) }
func Pi() Expression { return call("pi", sqltype.Float) }

// Power raises base to exponent.
func Power(base, exponent Expression) Expression {
	return call("power", sqltype.Float, base, exponent).expectAll(isNumber, "numeric")
}

// Log returns the logarithm of x in the given base.
func Log(base, x Expression) Expression {
	return call("log", sqltype.Float, base, x).expectAll(isNumber, "numeric")
}

// Atan2 returns the arc tangent of y/x.
func Atan2(y, x Expression) Expression {
	return call("atan2", sqltype.Float, y, x).expectAll(isNumber, "numeric")
}

// Round rounds x to the given number of decimal places.
func Round(x, places Expression) Expression {
	return call("round", x.Kind(), x, places).
		expect(0, isNumber, "numeric").
		expect(1, isInteger, "integer")
}

// Truncate drops the digits of x beyond the given number of decimal places.
func Truncate(x, places Expression) Expression {
	return call("truncate", x.Kind(), x, places).
		expect(0, isNumber, "numeric").
		expect(1, isInteger, "integer")
}

// Strings.

// TrimSpec selects which end of a string Trim operates on.
type TrimSpec string

const (
	TrimBoth     TrimSpec = "BOTH"
	TrimLeading  TrimSpec = "LEADING"
	TrimTrailing TrimSpec = "TRAILING"
)

// PadSpec selects which end of a string Pad fills.
type PadSpec string

const (
	PadLeading  PadSpec = "LEADING"
	PadTrailing PadSpec = "TRAILING"
)

// Concat joins two or more strings.
func Concat(first, second Expression, rest ...Expression) Expression {
	args := append([]Expression{first, second}, rest...)
	return call("concat", sqltype.String, args...).expectAll(isText, "a string")
}

// Substring returns length characters of s starting at the 1-based position
// start. A nil length takes the rest of the string.
func Substring(s, start, length Expression) Expression {
	args := []Expression{s, start}
	if length != nil {
		args = append(args, length)
	}
	return call("substring", sqltype.String, args...).
		expect(0, isText, "a string").
		expect(1, isInteger, "integer").
		expect(2, isInteger, "integer")
}

// Trim removes char from one or both ends of s. A nil char trims spaces.
func Trim(spec TrimSpec, char, s Expression) Expression {
	if char == nil {
		char = Literal(" ")
	}
	e := call("trim", sqltype.String, char, s).expectAll(isText, "a string")
	e.Option = string(spec)
	if e.err == nil {
		if lit, ok := char.(*LiteralExpr); ok {
			if str, ok := lit.Value.(string); ok && len([]rune(str)) != 1 {
				e.err = buildError(ErrTypeMismatch, e.String(), "trim character must be a single character")
			}
		}
	}
	return e
}

func Upper(s Expression) Expression {
	return call("upper", sqltype.String, s).expect(0, isText, "a string")
}

func Lower(s Expression) Expression {
	return call("lower", sqltype.String, s).expect(0, isText, "a string")
}

// Length returns the number of characters in s.
func Length(s Expression) Expression {
	return call("length", sqltype.Integer, s).expect(0, isText, "a string")
}

// Locate returns the 1-based position of sub in s, or 0 when absent.
func Locate(sub, s Expression) Expression {
	return call("locate", sqltype.Integer, sub, s).expectAll(isText, "a string")
}

// Overlay replaces length characters of s starting at start with replacement.
func Overlay(s, replacement, start, length Expression) Expression {
	return call("overlay", sqltype.String, s, replacement, start, length).
		expect(0, isText, "a string").
		expect(1, isText, "a string").
		expect(2, isInteger, "integer").
		expect(3, isInteger, "integer")
}

// Pad fills s with char up to length characters.
func Pad(spec PadSpec, s, length, char Expression) Expression {
	if char == nil {
		char = Literal(" ")
	}
	e := call("pad", sqltype.String, s, length, char).
		expect(0, isText, "a string").
		expect(1, isInteger, "integer").
		expect(2, isText, "a string")
	e.Option = string(spec)
	return e
}

// Repeat concatenates s with itself count times.
func Repeat(s, count Expression) Expression {
	return call("repeat", sqltype.String, s, count).
		expect(0, isText, "a string").
		expect(1, isInteger, "integer")
}

// Left returns the first n characters of s.
func Left(s, n Expression) Expression {
	return call("left", sqltype.String, s, n).
		expect(0, isText, "a string").
		expect(1, isInteger, "integer")
}

// Right returns the last n characters of s.
func Right(s, n Expression) Expression {
	return call("right", sqltype.String, s, n).
		expect(0, isText, "a string").
		expect(1, isInteger, "integer")
}

// Replace substitutes every occurrence of from in s with to.
func Replace(s, from, to Expression) Expression {
	return call("replace", sqltype.String, s, from, to).expectAll(isText, "a string")
}

// Date and time.

// TemporalUnit names a calendar field or a duration unit.
type TemporalUnit string

const (
	Year   TemporalUnit = "YEAR"
	Month  TemporalUnit = "MONTH"
	Week   TemporalUnit = "WEEK"
	Day    TemporalUnit = "DAY"
	Hour   TemporalUnit = "HOUR"
	Minute TemporalUnit = "MINUTE"
	Second TemporalUnit = "SECOND"
)

var unitSeconds = map[TemporalUnit]int64{
	Second: 1,
	Minute: 60,
	Hour:   3600,
	Day:    86400,
	Week:   7 * 86400,
}

// Seconds returns the fixed length of a duration unit. Months and years have
// no fixed length.
func (u TemporalUnit) Seconds() (int64, bool) {
	s, ok := unitSeconds[u]
	return s, ok
}

func (u TemporalUnit) isField() bool {
	switch u {
	case Year, Month, Day, Hour, Minute, Second:
		return true
	}
	return false
}

func CurrentTimestamp() Expression { return call("current_timestamp", sqltype.Timestamp) }
func CurrentDate() Expression { return call("current_date", sqltype.Date) }
func CurrentTime() Expression { return call("current_time", sqltype.Time) }

// Extract returns one calendar field of a temporal value as an integer.
func Extract(field TemporalUnit, x Expression) Expression {
	e := call("extract", sqltype.Integer, x).expect(0, isTemporal, "temporal")
	e.Option = string(field)
	if e.err == nil && !field.isField() {
		e.err = buildError(ErrTypeMismatch, e.String(), "%s is not an extractable field", field)
	}
	return e
}

// TruncateTime zeroes every field of x finer than unit.
func TruncateTime(unit TemporalUnit, x Expression) Expression {
	e := call("truncate_time", sqltype.Timestamp, x).expect(0, isTemporal, "temporal")
	e.Option = string(unit)
	if e.err == nil && !unit.isField() {
		e.err = buildError(ErrTypeMismatch, e.String(), "cannot truncate to %s", unit)
	}
	return e
}

// Duration builds a duration of amount units. Durations are carried as a
// number of seconds.
func Duration(amount Expression, unit TemporalUnit) Expression {
	e := call("duration", sqltype.Duration, amount).expect(0, isNumber, "numeric")
	e.Option = string(unit)
	if _, ok := unit.Seconds(); e.err == nil && !ok {
		e.err = buildError(ErrTypeMismatch, e.String(), "%s has no fixed length", unit)
	}
	return e
}

// AddDuration shifts a timestamp forward.
func AddDuration(ts, d Expression) Expression {
	return call("add_duration", sqltype.Timestamp, ts, d).
		expect(0, isTemporal, "temporal").
		expect(1, isDuration, "a duration")
}

// SubtractDuration shifts a timestamp backward.
func SubtractDuration(ts, d Expression) Expression {
	return call("subtract_duration", sqltype.Timestamp, ts, d).
		expect(0, isTemporal, "temporal").
		expect(1, isDuration, "a duration")
}

// DurationSum adds two durations.
func DurationSum(a, b Expression) Expression {
	return durationArith(OpAdd, a, b)
}

// DurationDiff subtracts b from a.
func DurationDiff(a, b Expression) Expression {
	return durationArith(OpSub, a, b)
}

func durationArith(op ArithOp, a, b Expression) Expression {
	e := arith(op, a, b).(*ArithExpr)
	if e.err == nil {
		for _, x := range []Expression{a, b} {
			if k := x.Kind(); k != sqltype.Unknown && k != sqltype.Duration {
				e.err = buildError(ErrTypeMismatch, e.String(), "expected a duration, got %s", k)
				break
			}
		}
	}
	e.kind = sqltype.Duration
	return e
}

// DurationScaled multiplies a duration by a number.
func DurationScaled(d, factor Expression) Expression {
	e := arith(OpMul, d, factor).(*ArithExpr)
	if e.err == nil {
		if k := d.Kind(); k != sqltype.Unknown && k != sqltype.Duration {
			e.err = buildError(ErrTypeMismatch, e.String(), "expected a duration, got %s", k)
		} else if k := factor.Kind(); k != sqltype.Unknown && !isNumber(k) {
			e.err = buildError(ErrTypeMismatch, e.String(), "scale factor must be numeric, got %s", k)
		}
	}
	e.kind = sqltype.Duration
	return e
}

// DurationByUnit converts a duration to a count of unit.
func DurationByUnit(d Expression, unit TemporalUnit) Expression {
	e := call("duration_by_unit", sqltype.Float, d).expect(0, isDuration, "a duration")
	e.Option = string(unit)
	if _, ok := unit.Seconds(); e.err == nil && !ok {
		e.err = buildError(ErrTypeMismatch, e.String(), "%s has no fixed length", unit)
	}
	return e
}

// DurationBetween returns the elapsed time from start to end.
func DurationBetween(start, end Expression) Expression {
	return call("duration_between", sqltype.Duration, start, end).expectAll(isTemporal, "temporal")
}

// CatalogFunctions lists every catalog function name a renderer has to know.
var CatalogFunctions = []string{
	"coalesce",
	"abs", "sign", "sqrt", "exp", "ln", "log10", "log", "power", "ceiling", "floor", "round", "truncate",
	"pi", "sin", "cos", "tan", "asin", "acos", "atan", "atan2", "sinh", "cosh", "tanh", "degrees", "radians",
	"concat", "substring", "trim", "upper", "lower", "length", "locate", "overlay", "pad", "repeat",
	"left", "right", "replace",
	"current_timestamp", "current_date", "current_time", "extract", "truncate_time",
	"duration", "add_duration", "subtract_duration", "duration_by_unit", "duration_between",
}
