// Package querysql renders the parameterized SQL used by the attribute store.
//
// Statements are derived from an attr.Kind so that every attribute family is
// served by the same text with only table and column names substituted.
// Identifiers are validated and quoted; values are always bound as
// parameters, never interpolated.
package querysql
