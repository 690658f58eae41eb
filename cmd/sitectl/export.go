package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/site-builder/internal/bootstrap"
)

func newExportCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export <website-id>",
		Short: "Build the site bundle of a website as a zip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid website id %q", args[0])
			}

			e, err := setup(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			svc, err := bootstrap.SetupExportService(e.cfg, e.db, nil, nil, e.log)
			if err != nil {
				return err
			}
			file, err := svc.ArchiveByID(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("export website %d: %w", id, err)
			}
			defer file.Close()

			if out == "" {
				out = file.Name
			}
			if err = copyFile(file.Path, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", out, file.Size)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default is ./{domain}.zip)")
	return cmd
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer in.Close()

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err = io.Copy(f, in); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return f.Close()
}
