package schema

// Classification holds the column groups of a record, each in declaration
// order.
type Classification struct {
	Key    []string // Columns identifying a row
	Insert []string // Columns written by insert
	Update []string // Columns written by update
	Query  []string // Columns read back, always every field
}

// Classify partitions fields into column groups. A field belongs to the key
// group when any marker contains "key", to the insert group unless a marker
// contains "noinsert" and to the update group unless a marker contains
// "noupdate". Every field is queried. Matching is case-sensitive.
func Classify(fields []Field) Classification {
	var c Classification
	for _, f := range fields {
		if f.HasMarker(MarkerKey) {
			c.Key = append(c.Key, f.Column)
		}
		if !f.HasMarker(MarkerNoInsert) {
			c.Insert = append(c.Insert, f.Column)
		}
		if !f.HasMarker(MarkerNoUpdate) {
			c.Update = append(c.Update, f.Column)
		}
		c.Query = append(c.Query, f.Column)
	}
	return c
}
