package planner

import "strings"

// Function tables map catalog function names to renderings. Functions that
// take an option are keyed name:OPTION. Durations are numbers of seconds
// everywhere; duration and duration_by_unit are rendered generically.

func commonFunctions() map[string]renderFunc {
	return map[string]renderFunc{
		"coalesce": variadic("COALESCE(", ", ", ")"),
		"abs":      tmpl("ABS({0})"),
		"sign":     tmpl("SIGN({0})"),
		"sqrt":     tmpl("SQRT({0})"),
		"exp":      tmpl("EXP({0})"),
		"ln":       tmpl("LN({0})"),
		"log10":    tmpl("LOG10({0})"),
		"log":      tmpl("LOG({0}, {1})"),
		"power":    tmpl("POWER({0}, {1})"),
		"ceiling":  tmpl("CEILING({0})"),
		"floor":    tmpl("FLOOR({0})"),
		"round":    tmpl("ROUND({0}, {1})"),
		"pi":       tmpl("PI()"),
		"sin":      tmpl("SIN({0})"),
		"cos":      tmpl("COS({0})"),
		"tan":      tmpl("TAN({0})"),
		"asin":     tmpl("ASIN({0})"),
		"acos":     tmpl("ACOS({0})"),
		"atan":     tmpl("ATAN({0})"),
		"atan2":    tmpl("ATAN2({0}, {1})"),
		"sinh":     tmpl("SINH({0})"),
		"cosh":     tmpl("COSH({0})"),
		"tanh":     tmpl("TANH({0})"),
		"degrees":  tmpl("DEGREES({0})"),
		"radians":  tmpl("RADIANS({0})"),

		"upper":   tmpl("UPPER({0})"),
		"lower":   tmpl("LOWER({0})"),
		"replace": tmpl("REPLACE({0}, {1}, {2})"),

		"current_timestamp": tmpl("CURRENT_TIMESTAMP"),
		"current_date":      tmpl("CURRENT_DATE"),
		"current_time":      tmpl("CURRENT_TIME"),
	}
}

func mysqlFunctions() map[string]renderFunc {
	f := commonFunctions()
	f["sinh"] = tmpl("((EXP({0}) - EXP(-({0}))) / 2)")
	f["cosh"] = tmpl("((EXP({0}) + EXP(-({0}))) / 2)")
	f["tanh"] = tmpl("((EXP({0}) - EXP(-({0}))) / (EXP({0}) + EXP(-({0}))))")
	f["truncate"] = tmpl("TRUNCATE({0}, {1})")

	f["concat"] = variadic("CONCAT(", ", ", ")")
	f["substring"] = byArity(map[int]renderFunc{
		2: tmpl("SUBSTRING({0}, {1})"),
		3: tmpl("SUBSTRING({0}, {1}, {2})"),
	})
	f["trim:BOTH"] = tmpl("TRIM(BOTH {0} FROM {1})")
	f["trim:LEADING"] = tmpl("TRIM(LEADING {0} FROM {1})")
	f["trim:TRAILING"] = tmpl("TRIM(TRAILING {0} FROM {1})")
	f["length"] = tmpl("CHAR_LENGTH({0})")
	f["locate"] = tmpl("LOCATE({0}, {1})")
	f["overlay"] = tmpl("INSERT({0}, {2}, {3}, {1})")
	f["pad:LEADING"] = tmpl("LPAD({0}, {1}, {2})")
	f["pad:TRAILING"] = tmpl("RPAD({0}, {1}, {2})")
	f["repeat"] = tmpl("REPEAT({0}, {1})")
	f["left"] = tmpl("LEFT({0}, {1})")
	f["right"] = tmpl("RIGHT({0}, {1})")

	for _, unit := range []string{"YEAR", "MONTH", "DAY", "HOUR", "MINUTE", "SECOND"} {
		f["extract:"+unit] = tmpl("EXTRACT(" + unit + " FROM {0})")
	}
	truncLayouts := map[string]string{
		"YEAR":   "%Y-01-01 00:00:00",
		"MONTH":  "%Y-%m-01 00:00:00",
		"DAY":    "%Y-%m-%d 00:00:00",
		"HOUR":   "%Y-%m-%d %H:00:00",
		"MINUTE": "%Y-%m-%d %H:%i:00",
		"SECOND": "%Y-%m-%d %H:%i:%s",
	}
	for unit, layout := range truncLayouts {
		f["truncate_time:"+unit] = tmpl("CAST(DATE_FORMAT({0}, '" + layout + "') AS DATETIME)")
	}
	f["add_duration"] = tmpl("({0} + INTERVAL ({1}) SECOND)")
	f["subtract_duration"] = tmpl("({0} - INTERVAL ({1}) SECOND)")
	f["duration_between"] = tmpl("TIMESTAMPDIFF(SECOND, {0}, {1})")
	return f
}

// sqliteMathNames are the functions SQLite only compiles in with
// SQLITE_ENABLE_MATH_FUNCTIONS (the sqlite_math_functions build tag of
// go-sqlite3).
var sqliteMathNames = []string{
	"sqrt", "exp", "ln", "log10", "log", "power", "ceiling", "floor", "pi",
	"sin", "cos", "tan", "asin", "acos", "atan", "atan2", "sinh", "cosh", "tanh",
	"degrees", "radians",
}

func sqliteFunctions() map[string]renderFunc {
	f := commonFunctions()
	f["truncate"] = unsupported
	if !sqliteMathFunctions {
		for _, name := range sqliteMathNames {
			delete(f, name)
		}
	}

	f["concat"] = variadic("(", " || ", ")")
	f["substring"] = byArity(map[int]renderFunc{
		2: tmpl("SUBSTR({0}, {1})"),
		3: tmpl("SUBSTR({0}, {1}, {2})"),
	})
	f["trim:BOTH"] = tmpl("TRIM({1}, {0})")
	f["trim:LEADING"] = tmpl("LTRIM({1}, {0})")
	f["trim:TRAILING"] = tmpl("RTRIM({1}, {0})")
	f["length"] = tmpl("LENGTH({0})")
	f["locate"] = tmpl("INSTR({1}, {0})")
	f["overlay"] = tmpl("(SUBSTR({0}, 1, {2} - 1) || {1} || SUBSTR({0}, {2} + {3}))")
	f["pad:LEADING"] = unsupported
	f["pad:TRAILING"] = unsupported
	f["repeat"] = tmpl("REPLACE(HEX(ZEROBLOB({1})), '00', {0})")
	f["left"] = tmpl("SUBSTR({0}, 1, {1})")
	f["right"] = tmpl("(CASE WHEN {1} > 0 THEN SUBSTR({0}, -({1})) ELSE '' END)")

	fields := map[string]string{
		"YEAR": "%Y", "MONTH": "%m", "DAY": "%d", "HOUR": "%H", "MINUTE": "%M", "SECOND": "%S",
	}
	for unit, spec := range fields {
		f["extract:"+unit] = tmpl("CAST(STRFTIME('" + spec + "', {0}) AS INTEGER)")
	}
	truncLayouts := map[string]string{
		"YEAR":   "%Y-01-01 00:00:00",
		"MONTH":  "%Y-%m-01 00:00:00",
		"DAY":    "%Y-%m-%d 00:00:00",
		"HOUR":   "%Y-%m-%d %H:00:00",
		"MINUTE": "%Y-%m-%d %H:%M:00",
		"SECOND": "%Y-%m-%d %H:%M:%S",
	}
	for unit, layout := range truncLayouts {
		f["truncate_time:"+unit] = tmpl("STRFTIME('" + layout + "', {0})")
	}
	f["add_duration"] = tmpl("DATETIME({0}, ({1}) || ' seconds')")
	f["subtract_duration"] = tmpl("DATETIME({0}, (-({1})) || ' seconds')")
	f["duration_between"] = tmpl("CAST(ROUND((JULIANDAY({1}) - JULIANDAY({0})) * 86400) AS INTEGER)")
	return f
}

func postgresFunctions() map[string]renderFunc {
	f := commonFunctions()
	f["log"] = tmpl("LOG(CAST({0} AS NUMERIC), CAST({1} AS NUMERIC))")
	f["round"] = tmpl("ROUND(CAST({0} AS NUMERIC), {1})")
	f["truncate"] = tmpl("TRUNC(CAST({0} AS NUMERIC), {1})")

	f["concat"] = variadic("(", " || ", ")")
	f["substring"] = byArity(map[int]renderFunc{
		2: tmpl("SUBSTRING({0} FROM {1})"),
		3: tmpl("SUBSTRING({0} FROM {1} FOR {2})"),
	})
	f["trim:BOTH"] = tmpl("TRIM(BOTH {0} FROM {1})")
	f["trim:LEADING"] = tmpl("TRIM(LEADING {0} FROM {1})")
	f["trim:TRAILING"] = tmpl("TRIM(TRAILING {0} FROM {1})")
	f["length"] = tmpl("CHAR_LENGTH({0})")
	f["locate"] = tmpl("STRPOS({1}, {0})")
	f["overlay"] = tmpl("OVERLAY({0} PLACING {1} FROM {2} FOR {3})")
	f["pad:LEADING"] = tmpl("LPAD({0}, CAST({1} AS INTEGER), {2})")
	f["pad:TRAILING"] = tmpl("RPAD({0}, CAST({1} AS INTEGER), {2})")
	f["repeat"] = tmpl("REPEAT({0}, CAST({1} AS INTEGER))")
	f["left"] = tmpl("LEFT({0}, CAST({1} AS INTEGER))")
	f["right"] = tmpl("RIGHT({0}, CAST({1} AS INTEGER))")

	for _, unit := range []string{"YEAR", "MONTH", "DAY", "HOUR", "MINUTE", "SECOND"} {
		f["extract:"+unit] = tmpl("CAST(FLOOR(EXTRACT(" + unit + " FROM {0})) AS INTEGER)")
		f["truncate_time:"+unit] = tmpl("DATE_TRUNC('" + strings.ToLower(unit) + "', {0})")
	}
	f["add_duration"] = tmpl("({0} + ({1}) * INTERVAL '1 second')")
	f["subtract_duration"] = tmpl("({0} - ({1}) * INTERVAL '1 second')")
	f["duration_between"] = tmpl("EXTRACT(EPOCH FROM ({1} - {0}))")
	return f
}
