package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/kailas-cloud/firerest"
	"github.com/kailas-cloud/firerest/internal/codec"
)

// Exit codes for CLI commands.
const (
	ExitSuccess = 0 // Successful execution
	ExitFailure = 1 // Operation failed (not found, backend error)
	ExitUsage   = 2 // Bad arguments, configuration or an operation the path does not support
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitUsage)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Caller mistakes
// (invalid operation, unsupported operator or value, configuration) map to
// ExitUsage, everything else to ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	for _, usage := range []error{
		firerest.ErrInvalidOperation,
		firerest.ErrUnsupportedOperator,
		firerest.ErrUnsupportedValue,
		firerest.ErrConfiguration,
	} {
		if errors.Is(err, usage) {
			return ExitUsage
		}
	}
	return ExitFailure
}

// documentOutput is the JSON shape of one document.
type documentOutput struct {
	ID         string         `json:"id"`
	Path       string         `json:"path"`
	Exists     bool           `json:"exists"`
	Data       map[string]any `json:"data,omitempty"`
	UpdateTime *time.Time     `json:"updateTime,omitempty"`
}

type queryOutput struct {
	Documents []documentOutput `json:"documents"`
	Size      int              `json:"size"`
}

type writeOutput struct {
	ID        string         `json:"id"`
	Path      string         `json:"path"`
	WriteTime *time.Time     `json:"writeTime,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// OutputFormatter renders results as JSON or text.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Document prints a single document.
func (f *OutputFormatter) Document(snap *firerest.DocumentSnapshot) error {
	out := toDocumentOutput(snap)
	if f.Format == "json" {
		return f.json(out)
	}
	f.documentText(out)
	return nil
}

// Query prints every document of a query result in order.
func (f *OutputFormatter) Query(snap *firerest.QuerySnapshot) error {
	out := queryOutput{Documents: make([]documentOutput, 0, snap.Size()), Size: snap.Size()}
	snap.ForEach(func(doc *firerest.DocumentSnapshot) {
		out.Documents = append(out.Documents, toDocumentOutput(doc))
	})
	if f.Format == "json" {
		return f.json(out)
	}
	for _, d := range out.Documents {
		f.documentText(d)
	}
	fmt.Fprintf(f.Writer, "(%d documents)\n", out.Size)
	return nil
}

// Write prints the outcome of a set or add.
func (f *OutputFormatter) Write(doc *firerest.DocumentRef, wr *firerest.WriteResult) error {
	out := writeOutput{ID: doc.ID(), Path: doc.Path(), Data: codec.Presentable(wr.Data())}
	if !wr.WriteTime.IsZero() {
		t := wr.WriteTime
		out.WriteTime = &t
	}
	if f.Format == "json" {
		return f.json(out)
	}
	fmt.Fprintf(f.Writer, "wrote %s", out.Path)
	if out.WriteTime != nil {
		fmt.Fprintf(f.Writer, " at %s", out.WriteTime.Format(time.RFC3339Nano))
	}
	fmt.Fprintln(f.Writer)
	return nil
}

// Deleted prints the outcome of a delete.
func (f *OutputFormatter) Deleted(doc *firerest.DocumentRef) error {
	if f.Format == "json" {
		return f.json(map[string]any{"path": doc.Path(), "deleted": true})
	}
	fmt.Fprintf(f.Writer, "deleted %s\n", doc.Path())
	return nil
}

func (f *OutputFormatter) json(v any) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func (f *OutputFormatter) documentText(d documentOutput) {
	if !d.Exists {
		fmt.Fprintf(f.Writer, "%s (missing)\n", d.Path)
		return
	}
	fmt.Fprintln(f.Writer, d.Path)
	keys := make([]string, 0, len(d.Data))
	for k := range d.Data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		v, err := json.Marshal(d.Data[k])
		if err != nil {
			v = []byte(fmt.Sprint(d.Data[k]))
		}
		fmt.Fprintf(f.Writer, "  %s: %s\n", k, v)
	}
}

func toDocumentOutput(snap *firerest.DocumentSnapshot) documentOutput {
	out := documentOutput{
		ID:     snap.ID(),
		Path:   snap.Ref.Path(),
		Exists: snap.Exists(),
		Data:   codec.Presentable(snap.Data()),
	}
	if t := snap.UpdateTime(); !t.IsZero() {
		out.UpdateTime = &t
	}
	return out
}
