// Package types defines the values, rows, configuration, function
// registrations, and error types shared by the embedsql packages.
//
// A Value is a tagged union over the five storage classes of the embedded
// engine: Null, Integer, Float, Text, and Blob. Rows are slices of Values.
// Every failure surfaced by the engine layer is one of the structured error
// types in this package and can be matched with errors.As; the sentinel
// errors can be matched with errors.Is.
package types
