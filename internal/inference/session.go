package inference

// Session is the narrow contract against the numeric inference runtime: one
// blocking call mapping the feature tensor and its length scalar to logits.
// Implementations must be safe for concurrent Run calls with distinct
// inputs sharing the same loaded weights.
type Session interface {
	Run(features []float32, shape [3]int64, length int64) (*Logits, error)
	Close() error
}

// Logits holds the raw model output: per-frame unnormalized scores over the
// vocabulary, shaped (steps, vocab) for a batch of one.
type Logits struct {
	Data  []float32
	Steps int
	Vocab int
}

// Argmax reduces each frame's score distribution to its most likely token
// id (greedy decoding).
func (l *Logits) Argmax() []int {
	ids := make([]int, l.Steps)
	for step := 0; step < l.Steps; step++ {
		row := l.Data[step*l.Vocab : (step+1)*l.Vocab]
		best := 0
		for v := 1; v < len(row); v++ {
			if row[v] > row[best] {
				best = v
			}
		}
		ids[step] = best
	}
	return ids
}
