// Package builtin contains the value-level operations behind transformation
// rules. Every function here is pure: it takes a string or number and returns
// the new value plus whether the operation applied. Rule wiring (columns,
// enabled flags, null handling, row copying) lives in the parent package.
package builtin
