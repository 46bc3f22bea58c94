// Package registry is the glue between declarative plan files and the
// compiled Go functions that implement operations. It maps the string
// identifiers used in a plan's "operation" attribute to the
// OperationFunc that runs as the body of the task those identifiers name.
package registry
