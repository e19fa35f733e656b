package osmpkg

import "fmt"

// MissingEntryError is returned by Load when the archive lacks one of the
// six required table entries. Entry is the first absent table name in
// canonical order.
type MissingEntryError struct {
	Entry string
}

func (e *MissingEntryError) Error() string {
	return fmt.Sprintf("package is missing required entry %q", e.Entry)
}

// SchemaMismatchError is returned by Load when an entry decodes to a
// column layout other than the expected table schema.
type SchemaMismatchError struct {
	Entry    string
	Expected string
	Found    string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("entry %q has schema (%s), expected (%s)", e.Entry, e.Found, e.Expected)
}
