package ir

// Record is one candidate row of the input table.
type Record struct {
	// Row is the 0-based position of the record in the input sequence.
	Row int `json:"row"`

	// Line is the 1-based line of the record in its source table, counting
	// the header and any skipped title lines. Zero when unknown.
	Line int `json:"line,omitempty"`

	// IDs are the three identifier values in column order.
	IDs [3]IRValue `json:"-"`

	// Aux is the auxiliary numeric field. On admitted records the engine
	// replaces it with the aggregate over every record sharing the triple.
	Aux int64 `json:"aux"`

	// Cells is the full raw row, carried through to the output table.
	Cells []string `json:"cells,omitempty"`
}

// Triple returns the normalized identifier triple of the record.
func (r Record) Triple() Triple {
	return NewTriple(r.IDs[0], r.IDs[1], r.IDs[2])
}

// Key returns the canonical triple key of the record.
func (r Record) Key() TripleKey {
	return r.Triple().Key()
}

// Pairs returns the record's pair keys in field order.
func (r Record) Pairs() [3]PairKey {
	return PairsOf(r.IDs)
}

// IDTexts renders the identifiers in column order.
func (r Record) IDTexts() [3]string {
	return [3]string{r.IDs[0].Text(), r.IDs[1].Text(), r.IDs[2].Text()}
}
