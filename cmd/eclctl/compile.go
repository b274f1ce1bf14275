package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"eclreports/internal/pkg/compile"
)

func newCompileCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Place every all-tables CSV side by side in one file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = filepath.Join(outputDir, compile.DefaultOutputName)
			}
			compiled, err := compile.NewCompiler().CompileDir(outputDir, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "compiled %d columns, %d rows into %s\n", compiled.Width(), len(compiled.Rows), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default <output-dir>/"+compile.DefaultOutputName+")")
	return cmd
}
