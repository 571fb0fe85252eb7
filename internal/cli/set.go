package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/firerest"
)

// SetOptions holds flags for the set command.
type SetOptions struct {
	*RootOptions
	Merge       bool
	MergeFields []string
}

// NewSetCommand creates the set command.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "set <document-path> <json|->",
		Short: "Write a document",
		Long: `Write a document from a JSON object ("-" reads it from stdin).

Without options the document is replaced. --merge updates only the
top-level keys present in the data; --merge-fields updates exactly the
listed field paths, deleting those absent from the data.

Example:
  firerest set users/alice '{"name":"Ada","age":36}'
  firerest set users/alice '{"age":37}' --merge`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(cmd, opts, args[0], args[1])
		},
	}

	cmd.Flags().BoolVar(&opts.Merge, "merge", false, "merge top-level keys into the existing document")
	cmd.Flags().StringSliceVar(&opts.MergeFields, "merge-fields", nil, "field paths to update (comma-separated)")

	return cmd
}

func runSet(cmd *cobra.Command, opts *SetOptions, path, raw string) error {
	ctx := cmd.Context()

	data, err := readData(cmd, raw)
	if err != nil {
		return err
	}

	var setOpts []firerest.SetOption
	switch {
	case cmd.Flags().Changed("merge-fields"):
		setOpts = append(setOpts, firerest.MergeFields(opts.MergeFields...))
	case opts.Merge:
		setOpts = append(setOpts, firerest.Merge())
	}

	client, err := opts.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	ref, err := client.Resolve(path)
	if err != nil {
		return err
	}
	doc, err := firerest.AsDocument(ref)
	if err != nil {
		return err
	}

	wr, err := doc.Set(ctx, data, setOpts...)
	if err != nil {
		return err
	}
	return opts.formatter(cmd).Write(doc, wr)
}

// readData decodes a JSON object argument. Numbers keep their literal form
// so integers are written as integers.
func readData(cmd *cobra.Command, raw string) (map[string]any, error) {
	var src io.Reader = strings.NewReader(raw)
	if raw == "-" {
		src = cmd.InOrStdin()
	}

	dec := json.NewDecoder(src)
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, WrapExitError(ExitUsage, "data must be a JSON object", err)
	}
	if data == nil {
		return nil, NewExitError(ExitUsage, fmt.Sprintf("data must be a JSON object, got %q", raw))
	}
	return data, nil
}
