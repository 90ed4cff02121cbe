package query

// Order sorts a select by one field.
type Order struct {
	Field string
	Desc  bool
}

// Select describes a read against one table.
type Select struct {
	From string
	// Fields restricts the projection. Empty means every column.
	Fields  []string
	Where   Predicate
	OrderBy []Order
	// Skip is the number of leading records to leave out.
	Skip int
	// Take caps the number of records returned. Zero means no cap.
	Take int
}

// From starts a select over table.
func From(table string) Select {
	return Select{From: table}
}

func (s Select) WithFields(fields ...string) Select {
	s.Fields = append([]string(nil), fields...)
	return s
}

func (s Select) WithWhere(p Predicate) Select {
	s.Where = p
	return s
}

func (s Select) WithOrder(field string, desc bool) Select {
	s.OrderBy = append(append([]Order(nil), s.OrderBy...), Order{Field: field, Desc: desc})
	return s
}

func (s Select) WithSkip(n int) Select {
	s.Skip = n
	return s
}

func (s Select) WithTake(n int) Select {
	s.Take = n
	return s
}

// FirstField returns the first projected field, if the select names any.
func (s Select) FirstField() (string, bool) {
	if len(s.Fields) == 0 {
		return "", false
	}
	return s.Fields[0], true
}
