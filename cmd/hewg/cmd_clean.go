package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/datawire/dlib/dlog"
)

func init() {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove all build artifacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := countdown(ctx, flagSkip, "wiping .hcache/ and target/", 3); err != nil {
				return err
			}

			for _, dir := range []string{".hcache", "target"} {
				if err := os.RemoveAll(dir); err != nil {
					return err
				}
				dlog.Infof(ctx, "removed %s", dir)
			}
			return nil
		},
	}
	argparser.AddCommand(cmd)
}
