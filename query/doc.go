// Package query resolves declarative query specifications against record
// schemas: a tagged-variant predicate tree, sort directives, method-name
// derived queries, field projections and bulk mutation expressions, with a
// SQL rendering of the same tree for Bun-backed stores.
package query
