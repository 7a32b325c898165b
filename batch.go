package poscache

// BatchGate bounds multi-key reads. Oversized batches are rejected in full
// before any record or ledger access: no partial results, zero entries.
type BatchGate struct {
	Max int
}

func (g BatchGate) Check(n int) error {
	if g.Max > 0 && n > g.Max {
		return ErrBatchLimit
	}
	return nil
}
