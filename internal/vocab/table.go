package vocab

import (
	"bufio"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// DefaultBlankID is the CTC blank token id assumed when no vocabulary
// entries could be loaded. It matches the blank position of the shipped
// model and exists as an escape hatch for a missing or corrupt token file.
const DefaultBlankID = 128

// Table maps token ids to their string form. It is built once by Load and
// never mutated afterwards, so concurrent readers need no locking.
type Table struct {
	tokens map[int]string
	blank  int
}

// Load parses a token file with one "<token> <index>" pair per line. The
// token may itself be empty, so each line is split only on the first space
// and the remainder is parsed as the index. Malformed lines and a missing
// file are logged and skipped rather than failing the load; decoding then
// proceeds with whatever entries were read.
func Load(path string, logger *slog.Logger) *Table {
	table := &Table{tokens: make(map[int]string), blank: DefaultBlankID}

	f, err := os.Open(path)
	if err != nil {
		logger.Warn("Token file not available, decoding with empty vocabulary",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return table
	}
	defer f.Close()

	skipped := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}

		token, indexPart, found := strings.Cut(line, " ")
		if !found {
			logger.Warn("Skipping malformed token line", slog.String("line", line))
			skipped++
			continue
		}

		index, err := strconv.Atoi(strings.TrimSpace(indexPart))
		if err != nil {
			logger.Warn("Skipping token line with invalid index",
				slog.String("line", line),
				slog.String("error", err.Error()),
			)
			skipped++
			continue
		}

		table.tokens[index] = token

		// Blank convention: the largest id present in the table.
		if len(table.tokens) == 1 || index > table.blank {
			table.blank = index
		}
	}

	if err := scanner.Err(); err != nil {
		logger.Warn("Error while reading token file",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}

	logger.Info("Vocabulary loaded",
		slog.String("path", path),
		slog.Int("tokens", len(table.tokens)),
		slog.Int("skipped_lines", skipped),
		slog.Int("blank_id", table.blank),
	)

	return table
}

// Get returns the token string for an id and whether it is present.
func (t *Table) Get(id int) (string, bool) {
	token, ok := t.tokens[id]
	return token, ok
}

// Len returns the number of loaded tokens.
func (t *Table) Len() int {
	return len(t.tokens)
}

// BlankID returns the CTC blank token id: the maximum id present in the
// table, or DefaultBlankID when the table is empty.
func (t *Table) BlankID() int {
	return t.blank
}
