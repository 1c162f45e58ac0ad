package apm

// MaxHits bounds the number of measurements a decoder expands one record
// into, counting every hit.
const MaxHits = 1 << 16

// ExpandHits converts a measurement reported with a hit count into one
// measurement per hit. The elapsed time is split evenly and the remainder
// goes to the first hit, so the total is preserved. A hit count of zero is
// treated as a single hit.
func ExpandHits(name string, totalUS uint64, hits uint64) []Measurement {
	if hits <= 1 {
		return []Measurement{{Name: name, ElapsedUS: totalUS}}
	}

	each := totalUS / hits
	result := make([]Measurement, hits)
	for i := range result {
		result[i] = Measurement{Name: name, ElapsedUS: each}
	}
	result[0].ElapsedUS += totalUS % hits
	return result
}
