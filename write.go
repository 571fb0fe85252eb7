package firerest

import (
	"time"

	"github.com/kailas-cloud/firerest/internal/codec"
	"github.com/kailas-cloud/firerest/internal/wire"
)

// WriteResult is the outcome of Set or Add.
type WriteResult struct {
	// WriteTime is the server update time of the written document.
	WriteTime time.Time

	fields wire.Fields
}

func newWriteResult(doc *wire.Document) *WriteResult {
	wr := &WriteResult{fields: doc.Fields}
	if doc.UpdateTime != nil {
		wr.WriteTime = *doc.UpdateTime
	}
	return wr
}

// Data decodes the document as stored after the write.
func (w *WriteResult) Data() map[string]any {
	return codec.Decode(w.fields)
}

// IsEqual reports whether the stored document equals data once both pass
// through the codec, so int and int64 spellings compare equal.
func (w *WriteResult) IsEqual(data map[string]any) bool {
	normalized, err := codec.Normalize(data)
	if err != nil {
		return false
	}
	return codec.Equal(w.Data(), normalized)
}
