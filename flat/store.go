package flat

// EstimateStore remembers the exposure that last produced an accepted flat
// for a filter and binning combination
type EstimateStore interface {
	// Estimate returns the remembered exposure for k, and false if there is none
	Estimate(k Key) (float64, bool)

	// SetEstimate remembers seconds as the exposure for k
	SetEstimate(k Key, seconds float64) error
}

// MemStore is an EstimateStore that lives only as long as the process
type MemStore map[Key]float64

// Estimate implements EstimateStore
func (m MemStore) Estimate(k Key) (float64, bool) {
	v, ok := m[k]
	return v, ok
}

// SetEstimate implements EstimateStore
func (m MemStore) SetEstimate(k Key, seconds float64) error {
	m[k] = seconds
	return nil
}

// Seed sets the exposure of each set from the store, leaving sets the store
// knows nothing about untouched
func Seed(sets []*FrameSet, st EstimateStore) {
	for _, s := range sets {
		if v, ok := st.Estimate(s.Key()); ok && v > 0 {
			s.Exposure = v
		}
	}
}
