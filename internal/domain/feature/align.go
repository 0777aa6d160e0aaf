package feature

// Align reconciles a feature vector against the persisted schema. Every name
// in schema absent from the input is filled with 0; every input name absent
// from schema is dropped; output order is exactly the schema order.
//
// Align is invoked on both the inference path and the retraining path so the
// two can never diverge in how they treat schema drift.
func Align(v Vector, schema []string) Vector {
	byName := make(map[string]float64, len(v.Names))
	for i, n := range v.Names {
		byName[n] = v.Values[i]
	}

	names := make([]string, len(schema))
	values := make([]float64, len(schema))
	for i, n := range schema {
		names[i] = n
		values[i] = byName[n] // zero value when absent
	}
	return Vector{Names: names, Values: values}
}

// AlignBatch aligns every row of a feature matrix to the schema.
func AlignBatch(names []string, rows [][]float64, schema []string) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = Align(Vector{Names: names, Values: row}, schema).Values
	}
	return out
}
