package cli

import (
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/firerest"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-path>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, rootOpts, args[0])
		},
	}
}

func runDelete(cmd *cobra.Command, opts *RootOptions, path string) error {
	ctx := cmd.Context()

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

	if _, err := doc.Delete(ctx); err != nil {
		return err
	}
	return opts.formatter(cmd).Deleted(doc)
}
