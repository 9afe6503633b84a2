package util

// StringSet is a set of strings, represented as the keys of a map.
type StringSet map[string]bool

// NewStringSet returns the given list(s) of strings as a StringSet.
func NewStringSet(lists ...[]string) StringSet {
	s := StringSet{}
	for _, list := range lists {
		for _, entry := range list {
			s[entry] = true
		}
	}
	return s
}

// Keys returns the keys of a StringSet, in no particular order.
func (s StringSet) Keys() []string {
	it := make([]string, 0, len(s))
	for k := range s {
		it = append(it, k)
	}
	return it
}

// Copy returns a copy of the StringSet such that reflect.DeepEqual returns
// true for the original and the copy. In particular, a copy of a nil
// StringSet is nil.
func (s StringSet) Copy() StringSet {
	if s == nil {
		return nil
	}
	m := make(StringSet, len(s))
	for k, v := range s {
		m[k] = v
	}
	return m
}

// AddLists adds lists of strings to the StringSet and returns the receiver.
func (s StringSet) AddLists(lists ...[]string) StringSet {
	for _, oneList := range lists {
		for _, item := range oneList {
			s[item] = true
		}
	}
	return s
}

// Union returns a new StringSet containing all the strings of the receiver
// and the given StringSet.
func (s StringSet) Union(other StringSet) StringSet {
	ret := s.Copy()
	if ret == nil {
		return other.Copy()
	}
	for k := range other {
		ret[k] = true
	}
	return ret
}

// Intersect returns a new StringSet containing the strings present in both
// the receiver and the given StringSet.
func (s StringSet) Intersect(other StringSet) StringSet {
	ret := make(StringSet, len(s))
	for k := range s {
		if other[k] {
			ret[k] = true
		}
	}
	return ret
}
