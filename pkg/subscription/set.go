package subscription

import (
	"maps"
	"slices"
)

// Set はサブタイプIDの集合。
type Set map[int64]struct{}

// NewSet は指定されたIDを含む集合を生成する。
func NewSet(ids ...int64) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add は集合にIDを追加する。
func (s Set) Add(id int64) {
	s[id] = struct{}{}
}

// Has は集合がIDを含むかを返す。
func (s Set) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// Clone は集合の複製を返す。nilの場合は空集合を返す。
func (s Set) Clone() Set {
	c := make(Set, len(s))
	maps.Copy(c, s)
	return c
}

// Union はsとotherの和集合を返す。
func (s Set) Union(other Set) Set {
	u := s.Clone()
	maps.Copy(u, other)
	return u
}

// Difference はsに含まれotherに含まれないIDの集合を返す。
func (s Set) Difference(other Set) Set {
	d := make(Set)
	for id := range s {
		if !other.Has(id) {
			d.Add(id)
		}
	}
	return d
}

// Equal は2つの集合が同じ要素を持つかを返す。
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Sorted は集合の要素を昇順のスライスで返す。
func (s Set) Sorted() []int64 {
	return slices.Sorted(maps.Keys(s))
}
