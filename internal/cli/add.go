package cli

import (
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/firerest"
)

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <collection-path> <json|->",
		Short: "Add a document with a generated id",
		Long: `Add a document under a freshly generated id and print its path.

Example:
  firerest add users '{"name":"Grace"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, rootOpts, args[0], args[1])
		},
	}
}

func runAdd(cmd *cobra.Command, opts *RootOptions, path, raw string) error {
	ctx := cmd.Context()

	data, err := readData(cmd, raw)
	if err != nil {
		return err
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
	col, err := firerest.AsCollection(ref)
	if err != nil {
		return err
	}

	doc, wr, err := col.Add(ctx, data)
	if err != nil {
		return err
	}
	return opts.formatter(cmd).Write(doc, wr)
}
