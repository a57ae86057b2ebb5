// Package attr defines the vocabulary of the attribute store: entity kinds,
// attribute records, the two-slot value codec and the key ordering used by
// the in-memory attribute buffer.
//
// Every attribute row is addressed by the triple (owner id, code, nr) where nr
// is the repetition ordinal of a multi-valued attribute. The payload travels in
// two generic columns, a numeric slot and a string slot; Value is the single
// place that maps typed values onto those slots and back.
//
// Codes are normalized to Unicode NFC before they are written or looked up.
// Ordering and matching of codes inside a Buffer is case-insensitive, using
// full Unicode case folding rather than whatever collation the database
// happens to apply.
package attr
