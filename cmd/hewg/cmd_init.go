package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/corvid3/hewg/internal/cliutil"
	"github.com/corvid3/hewg/internal/scaffold"
)

func init() {
	var flagDir string
	cmd := &cobra.Command{
		Use:   "init <type> <name>",
		Short: "Scaffold a new project",
		Args:  cliutil.WrapPositionalArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ptype, err := scaffold.ParseProjectType(args[0])
			if err != nil {
				return err
			}
			name := args[1]

			dir := flagDir
			if dir == "" {
				dir = filepath.Join(".", name)
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			return scaffold.Scaffold(dir, ptype, name)
		},
	}
	cmd.Flags().StringVarP(&flagDir, "dir", "d", "",
		"Directory to scaffold into (default: ./<name>)")

	argparser.AddCommand(cmd)
}
