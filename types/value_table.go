package types

import (
	"github.com/spf13/cast"
)

type NodeValue struct {
	Type  DataType
	Value any
}

// ValueTable is the ordered result of one node evaluation. Lookups walk
// backwards so the most recently pushed match wins; nodes depend on that
// override order.
type ValueTable struct {
	values []NodeValue
}

func NewValueTable() *ValueTable {
	return &ValueTable{}
}

func (t *ValueTable) Push(typ DataType, value any) {
	t.values = append(t.values, NodeValue{Type: typ, Value: value})
}

func (t *ValueTable) Append(other *ValueTable) {
	if other == nil {
		return
	}
	t.values = append(t.values, other.values...)
}

func (t *ValueTable) indexOf(types []DataType) int {
	for i := len(t.values) - 1; i >= 0; i-- {
		for _, typ := range types {
			if typ == DataAny || t.values[i].Type == typ {
				return i
			}
		}
	}
	return -1
}

// Get returns the last pushed value matching any of the given types.
func (t *ValueTable) Get(types ...DataType) (any, bool) {
	if t == nil {
		return nil, false
	}
	i := t.indexOf(types)
	if i < 0 {
		return nil, false
	}
	return t.values[i].Value, true
}

func (t *ValueTable) Has(types ...DataType) bool {
	_, exists := t.Get(types...)
	return exists
}

// Take removes and returns the last pushed value matching any of the types.
func (t *ValueTable) Take(types ...DataType) (any, bool) {
	if t == nil {
		return nil, false
	}
	i := t.indexOf(types)
	if i < 0 {
		return nil, false
	}
	v := t.values[i].Value
	t.values = append(t.values[:i], t.values[i+1:]...)
	return v, true
}

func (t *ValueTable) GetFloat64(types ...DataType) (float64, bool) {
	v, exists := t.Get(types...)
	return cast.ToFloat64(v), exists
}

func (t *ValueTable) GetInt(types ...DataType) (int, bool) {
	v, exists := t.Get(types...)
	return cast.ToInt(v), exists
}

func (t *ValueTable) GetBool(types ...DataType) (bool, bool) {
	v, exists := t.Get(types...)
	return cast.ToBool(v), exists
}

func (t *ValueTable) GetString(types ...DataType) (string, bool) {
	v, exists := t.Get(types...)
	return cast.ToString(v), exists
}

func (t *ValueTable) GetFrame(types ...DataType) (*Frame, bool) {
	v, exists := t.Get(types...)
	if !exists {
		return nil, false
	}
	f, ok := v.(*Frame)
	return f, ok && f != nil
}

func (t *ValueTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.values)
}

func (t *ValueTable) IsEmpty() bool {
	return t.Len() == 0
}

// Values returns a copy of the entries in push order.
func (t *ValueTable) Values() []NodeValue {
	if t == nil {
		return nil
	}
	return append([]NodeValue(nil), t.values...)
}

func (t *ValueTable) Types() []DataType {
	types := make([]DataType, 0, t.Len())
	for _, v := range t.Values() {
		types = append(types, v.Type)
	}
	return types
}

func (t *ValueTable) Clone() *ValueTable {
	return &ValueTable{values: t.Values()}
}
