package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/firerest"
)

// GetOptions holds flags for the get command.
type GetOptions struct {
	*RootOptions
	Where []string
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get [path]",
		Short: "Read a document or a collection",
		Long: `Read a document or every document of a collection. Without a path the
documents root is listed.

Collection reads accept --where filters; all of them must hold. Supported
operators: ==, <, <=, >, >=, array-contains.

Example:
  firerest get users/alice
  firerest get users --where 'age >= 21' --where 'tags array-contains "admin"'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runGet(cmd, opts, path)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, `filter "field op value" (repeatable)`)

	return cmd
}

func runGet(cmd *cobra.Command, opts *GetOptions, path string) error {
	ctx := cmd.Context()
	out := opts.formatter(cmd)

	client, err := opts.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if path == "" {
		if len(opts.Where) > 0 {
			return fmt.Errorf("--where needs a collection path: %w", firerest.ErrInvalidOperation)
		}
		snap, err := client.Get(ctx)
		if err != nil {
			return err
		}
		return out.Query(snap)
	}

	ref, err := client.Resolve(path)
	if err != nil {
		return err
	}

	switch r := ref.(type) {
	case *firerest.DocumentRef:
		if len(opts.Where) > 0 {
			return fmt.Errorf("--where needs a collection path, %q is a document: %w", path, firerest.ErrInvalidOperation)
		}
		snap, err := r.Get(ctx)
		if errors.Is(err, firerest.ErrNotFound) && snap != nil {
			if perr := out.Document(snap); perr != nil {
				return perr
			}
		}
		if err != nil {
			return err
		}
		return out.Document(snap)

	case *firerest.CollectionRef:
		q := r.Query()
		for _, expr := range opts.Where {
			if q, err = q.WhereExpr(expr); err != nil {
				return err
			}
		}
		snap, err := q.Get(ctx)
		if err != nil {
			return err
		}
		return out.Query(snap)

	default:
		return fmt.Errorf("unexpected reference %T: %w", ref, firerest.ErrInvalidOperation)
	}
}
