package ctc

import (
	"log/slog"
	"strings"

	"github.com/skypro1111/hindi-asr-service/internal/vocab"
)

// Decoder collapses per-frame token id sequences into text using greedy CTC
// decoding. The caller is expected to have already reduced each frame's
// distribution to its argmax id; this is intentionally not a beam search,
// which would change outputs.
type Decoder struct {
	logger *slog.Logger
}

// NewDecoder creates a Decoder.
func NewDecoder(logger *slog.Logger) *Decoder {
	return &Decoder{logger: logger}
}

// Decode applies the CTC collapse rule to a frame-aligned id sequence:
// blank frames emit nothing and reset the duplicate tracker, consecutive
// repeats of the same id are suppressed, and remaining ids are mapped
// through the table. Tokens already encode word-piece boundaries, so they
// are concatenated without a separator. An empty table yields an empty
// string regardless of input.
func (d *Decoder) Decode(ids []int, table *vocab.Table) string {
	if table.Len() == 0 {
		d.logger.Warn("Decoding with empty vocabulary table")
		return ""
	}

	blank := table.BlankID()

	var sb strings.Builder
	previous := -1
	hasPrevious := false

	for _, id := range ids {
		if id == blank {
			hasPrevious = false
			continue
		}

		if hasPrevious && id == previous {
			continue
		}

		if token, ok := table.Get(id); ok {
			sb.WriteString(token)
		} else {
			d.logger.Warn("Unknown token id in model output", slog.Int("token_id", id))
		}

		previous = id
		hasPrevious = true
	}

	return sb.String()
}
