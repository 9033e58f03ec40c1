package bench

import (
	"fmt"
	"os"
	"strings"
)

// WriteTSV appends one value row to a flat result table, creating the
// file with a header row first if it does not exist or is empty. Rows are
// never overwritten; re-running a benchmark accumulates rows under the
// one shared header.
func WriteTSV(path string, heads, values []string) error {
	if len(heads) != len(values) {
		return fmt.Errorf("write tsv: %d heads but %d values", len(heads), len(values))
	}

	needHeader := true
	if st, err := os.Stat(path); err == nil && st.Size() > 0 {
		needHeader = false
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("write tsv: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	if needHeader {
		b.WriteString(strings.Join(heads, "\t"))
		b.WriteByte('\n')
	}
	b.WriteString(strings.Join(values, "\t"))
	b.WriteByte('\n')

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("write tsv: %w", err)
	}
	return nil
}

// FormatRow renders "head: value" pairs for log output alongside the
// persisted row.
func FormatRow(heads, values []string) string {
	pairs := make([]string, 0, len(heads))
	for i := range heads {
		if i < len(values) {
			pairs = append(pairs, heads[i]+": "+values[i])
		}
	}
	return strings.Join(pairs, "  ")
}
