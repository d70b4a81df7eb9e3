package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	internalApp "github.com/haierkeys/fast-library-service/internal/app"
	"github.com/haierkeys/fast-library-service/internal/importer"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type importFlags struct {
	config   string
	library  string
	path     string
	maxItems int
}

func init() {
	flags := new(importFlags)

	var importCommand = &cobra.Command{
		Use:   "import <legacy.sqlite> [-c config_file] [--library id] [--path dir] [--max-items n]",
		Short: "Import a legacy library database",
		Long: `Import folders, tags and files from a legacy library database.

Folders are imported first, then tags, then files. Parent references and the
tags of each file are rewritten to the ids assigned in the target library.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := resolveConfig(flags.config)
			if err != nil {
				return err
			}
			rt, err := loadRuntime(config)
			if err != nil {
				return err
			}
			defer func() {
				if sqlDB, err := rt.db.DB(); err == nil {
					_ = sqlDB.Close()
				}
			}()

			req := importer.Request{
				Source:    rt.config.Import.Source,
				LibraryID: rt.config.Import.Library,
				Path:      rt.config.Import.Path,
			}
			if len(args) > 0 {
				req.Source = args[0]
			}
			if cmd.Flags().Changed("library") {
				req.LibraryID = flags.library
			}
			if cmd.Flags().Changed("path") {
				req.Path = flags.path
			}
			opts := importer.DefaultOptions()
			opts.MaxItems = rt.config.GetImportMaxItems()
			if cmd.Flags().Changed("max-items") {
				opts.MaxItems = flags.maxItems
			}
			opts.Progress = importer.ProgressPrinter(os.Stdout)

			app, err := internalApp.NewApp(rt.config, rt.logger, rt.db)
			if err != nil {
				return fmt.Errorf("failed to create app container: %w", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
				defer cancel()
				if err := app.Shutdown(ctx); err != nil {
					rt.logger.Error("failed to shutdown app container", zap.Error(err))
				}
			}()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			start := time.Now()
			res, err := importer.Import(ctx, app.LibraryService, req, opts, rt.logger)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			fmt.Printf("Imported %d folders, %d tags, %d files into %s (%d/%d records) in %s\n",
				res.Folders, res.Tags, res.Files, req.LibraryID, res.Processed, res.Total, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	rootCmd.AddCommand(importCommand)
	fs := importCommand.Flags()
	fs.StringVarP(&flags.config, "config", "c", "", "config file")
	fs.StringVarP(&flags.library, "library", "l", "", "target library id (default import.library)")
	fs.StringVar(&flags.path, "path", "", "target library location (default library.data-dir)")
	fs.IntVar(&flags.maxItems, "max-items", -1, "stop after this many records, negative for no limit")
}
