//go:build !sqlite_math_functions

package planner

// sqliteMathFunctions reports whether go-sqlite3 was built with the math
// function extension. Without it the math catalog fails at render time
// instead of at execution.
const sqliteMathFunctions = false
