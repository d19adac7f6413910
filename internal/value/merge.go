package value

// This file implements the three structural-recursion algorithms the edit
// engine is built from:
//
//	Merge(old, edit)      - apply a partial edit to a state object
//	Reverse(current, edit) - compute the edit that undoes another edit
//	Compose(first, second) - combine two edits into one equivalent edit
//
// Together they satisfy two laws the undo system depends on:
//
//	Merge(Merge(s, e), Reverse(s, e)) == s
//	Merge(Merge(s, first), second)    == Merge(s, Compose(first, second))

// Merge applies a partial edit to an old state object, returning a new
// object. Neither input is mutated.
//
// Per key of edit: a Null value deletes the key; if both sides hold objects
// the merge recurses; otherwise the edit value replaces the old one. A
// replacing object is scrubbed of Null markers so stored state never
// contains deletion markers.
func Merge(old Object, edit Object) Object {
	merged := make(Object, len(old)+len(edit))
	for k, v := range old {
		merged[k] = v
	}
	for k, newValue := range edit {
		if IsNull(newValue) {
			delete(merged, k)
			continue
		}
		oldValue, present := merged[k]
		newObject, newIsObject := newValue.(Object)
		if !newIsObject {
			merged[k] = newValue
			continue
		}
		if oldObject, ok := oldValue.(Object); present && ok {
			merged[k] = Merge(oldObject, newObject)
		} else {
			merged[k] = Merge(Object{}, newObject)
		}
	}
	return merged
}

// Reverse computes the edit that undoes applying edit to current.
//
// A key present in the edit but absent from current reverses to Null
// (undoing deletes it). A key present in both reverses to the old value,
// recursing into nested objects so the reverse edit stays as narrow as the
// forward one.
func Reverse(current Object, edit Object) Object {
	reversed := make(Object, len(edit))
	for k, newValue := range edit {
		oldValue, present := current[k]
		if !present {
			reversed[k] = Null{}
			continue
		}
		newObject, newIsObject := newValue.(Object)
		oldObject, oldIsObject := oldValue.(Object)
		if newIsObject && oldIsObject {
			reversed[k] = Reverse(oldObject, newObject)
		} else {
			reversed[k] = oldValue
		}
	}
	return reversed
}

// Compose combines two edits so that applying the result equals applying
// first and then second.
//
// Keys unique to either edit carry through. Where both edits touch a key,
// two object values compose recursively; in every other case second wins,
// so set-then-delete stays a deletion and delete-then-recreate surfaces the
// later value.
func Compose(first Object, second Object) Object {
	composed := make(Object, len(first)+len(second))
	for k, v := range first {
		composed[k] = v
	}
	for k, secondValue := range second {
		firstValue, present := composed[k]
		if !present {
			composed[k] = secondValue
			continue
		}
		firstObject, firstIsObject := firstValue.(Object)
		secondObject, secondIsObject := secondValue.(Object)
		if firstIsObject && secondIsObject {
			composed[k] = Compose(firstObject, secondObject)
		} else {
			composed[k] = secondValue
		}
	}
	return composed
}

// Equal reports deep structural equality of two Values.
// nil interfaces and Null compare equal.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil, Null:
		return IsNull(b)
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, elem := range av {
			other, present := bv[k]
			if !present || !Equal(elem, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Clone returns a deep copy of v. Scalars are returned as-is since they are
// immutable; only containers are copied.
func Clone(v Value) Value {
	switch val := v.(type) {
	case Array:
		out := make(Array, len(val))
		for i, elem := range val {
			out[i] = Clone(elem)
		}
		return out
	case Object:
		out := make(Object, len(val))
		for k, elem := range val {
			out[k] = Clone(elem)
		}
		return out
	default:
		return v
	}
}
