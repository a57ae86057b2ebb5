package attr

import (
	"cmp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeCode returns the NFC form of an attribute code.
func NormalizeCode(code string) string {
	return norm.NFC.String(code)
}

// FoldCode returns the comparison form of a code: NFC-normalized and case
// folded. A cases.Caser is stateful, so a fresh one is used per call.
func FoldCode(code string) string {
	return cases.Fold().String(norm.NFC.String(code))
}

// Key is the ordering key of an attribute row. Code holds the folded form.
type Key struct {
	OwnerID int64
	Code    string
	Nr      int64
}

// NewKey builds a comparison key from caller-supplied values.
func NewKey(ownerID int64, code string, nr int64) Key {
	return Key{OwnerID: ownerID, Code: FoldCode(code), Nr: nr}
}

// CompareKeys orders keys by owner id, then code, then nr.
func CompareKeys(a, b Key) int {
	if c := cmp.Compare(a.OwnerID, b.OwnerID); c != 0 {
		return c
	}
	if c := strings.Compare(a.Code, b.Code); c != 0 {
		return c
	}
	return cmp.Compare(a.Nr, b.Nr)
}
