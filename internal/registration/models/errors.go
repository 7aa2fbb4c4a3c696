package models

import "maps"

// FieldErrors maps a field to its current violation message. A missing key
// means no known violation, which is not the same as valid: the field may not
// have been checked yet.
type FieldErrors map[Field]string

// Clone returns an independent copy. Cloning nil yields an empty map.
func (e FieldErrors) Clone() FieldErrors {
	out := make(FieldErrors, len(e))
	maps.Copy(out, e)
	return out
}

// Set records msg for f, or clears the entry when msg is empty.
func (e FieldErrors) Set(f Field, msg string) {
	if msg == "" {
		delete(e, f)
		return
	}
	e[f] = msg
}

// Empty reports whether there are no violations.
func (e FieldErrors) Empty() bool {
	return len(e) == 0
}

// TouchedSet records which fields the user has left at least once.
type TouchedSet map[Field]bool

func (t TouchedSet) Clone() TouchedSet {
	out := make(TouchedSet, len(t))
	maps.Copy(out, t)
	return out
}

// Has reports whether f has been touched.
func (t TouchedSet) Has(f Field) bool {
	return t[f]
}
