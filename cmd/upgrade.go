package cmd

import (
	"context"
	"fmt"

	internalApp "github.com/haierkeys/fast-library-service/internal/app"

	"github.com/spf13/cobra"
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Upgrade the schema of every registered library to the latest version",
	Long: `Upgrade the schema of every registered library to the latest version.

Each library database is opened once, which applies all pending migrations.
It is safe to run this command multiple times - already applied migrations will be skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		config, err := resolveConfig(configPath)
		if err != nil {
			return err
		}
		rt, err := loadRuntime(config)
		if err != nil {
			return err
		}
		fmt.Printf("Loading config from: %s\n", rt.configRealpath)

		app, err := internalApp.NewApp(rt.config, rt.logger, rt.db)
		if err != nil {
			return fmt.Errorf("failed to create app container: %w", err)
		}
		ctx := context.Background()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(ctx, DefaultShutdownTimeout)
			defer cancel()
			_ = app.Shutdown(shutdownCtx)
		}()

		libs, err := app.LibraryService.List(ctx)
		if err != nil {
			return fmt.Errorf("list libraries: %w", err)
		}
		fmt.Printf("Starting upgrade of %d libraries...\n", len(libs))

		for _, lib := range libs {
			store, err := app.LibraryService.Acquire(ctx, lib.ID)
			if err != nil {
				return fmt.Errorf("upgrade library %s: %w", lib.ID, err)
			}
			_ = store.Close(ctx)
			fmt.Printf("  %s ok\n", lib.ID)
		}

		fmt.Println("Library upgrade completed successfully!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(upgradeCmd)
	upgradeCmd.Flags().StringP("config", "c", "", "config file path")
}
