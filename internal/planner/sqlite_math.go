//go:build sqlite_math_functions

package planner

const sqliteMathFunctions = true
