package types

// ValueDatabase maps each input of one node to the table it resolved to.
// It is built fresh for a single node evaluation and dropped afterwards.
type ValueDatabase struct {
	tables map[string]*ValueTable
	order  []string
}

func NewValueDatabase() *ValueDatabase {
	return &ValueDatabase{tables: make(map[string]*ValueTable)}
}

// Insert records the table for input, replacing any earlier one.
func (db *ValueDatabase) Insert(input string, table *ValueTable) {
	if db.tables == nil {
		db.tables = make(map[string]*ValueTable)
	}
	if _, exists := db.tables[input]; !exists {
		db.order = append(db.order, input)
	}
	db.tables[input] = table
}

func (db *ValueDatabase) Get(input string) (*ValueTable, bool) {
	if db == nil {
		return nil, false
	}
	t, exists := db.tables[input]
	return t, exists
}

// Value is shorthand for Get(input) followed by table.Get(types...).
func (db *ValueDatabase) Value(input string, types ...DataType) (any, bool) {
	t, exists := db.Get(input)
	if !exists {
		return nil, false
	}
	return t.Get(types...)
}

func (db *ValueDatabase) Len() int {
	if db == nil {
		return 0
	}
	return len(db.tables)
}

// Inputs returns input names in insertion order.
func (db *ValueDatabase) Inputs() []string {
	if db == nil {
		return nil
	}
	return append([]string(nil), db.order...)
}
