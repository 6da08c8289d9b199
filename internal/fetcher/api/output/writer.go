// Package output renders fetched records as JSON lines.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/nemanja-m/mrhistory/internal/fetcher/core"
)

// Writer emits one JSON document per line. It is safe for concurrent use by
// pool workers.
type Writer struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

func (w *Writer) WriteRecord(rec *core.ApplicationRecord) error {
	return w.write(ToRecordResponse(rec))
}

func (w *Writer) WriteError(appID string, err error) error {
	return w.write(ToErrorResponse(appID, err))
}

func (w *Writer) write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
