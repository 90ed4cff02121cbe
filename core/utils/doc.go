// Package utils provides locale-invariant value conversion shared by the
// result materializer and the table column types.
//
// ConvertTo and Convert return a *ConversionError on failure. Integer
// targets only accept base 10 strings and integral, in-range numbers.
package utils
