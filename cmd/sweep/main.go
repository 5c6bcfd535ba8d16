// Maintenance CLI for the synchronizer: run one sweep (cron entry
// point), manage the cipher key, inspect the tracked tasks.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"todo-overs-backend/internal/cipher"
	"todo-overs-backend/internal/config"
	"todo-overs-backend/internal/db"
	"todo-overs-backend/internal/habitica"
	"todo-overs-backend/internal/store"
	"todo-overs-backend/internal/sweep"
)

var forceKeygen bool

var rootCmd = &cobra.Command{
	Use:   "sweep",
	Short: "To Do Overs maintenance commands",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one synchronization pass over all tracked tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		database, err := db.Connect(cfg.ConnString())
		if err != nil {
			return fmt.Errorf("connect db: %w", err)
		}
		defer database.Close()

		codec := cipher.New(cfg.CipherFile)
		if err := codec.Init(); err != nil {
			return err
		}

		sweeper := &sweep.Sweeper{
			Store:   store.New(database),
			Client:  habitica.New(cfg.HabiticaURL),
			Decrypt: codec.Decrypt,
		}
		return sweeper.Run(context.Background())
	},
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Create the cipher key file",
	Long: `Create the cipher key file used to encrypt stored API tokens.
Regenerating an existing key makes every stored token unreadable, so an
existing file is only replaced with --force.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		codec := cipher.New(cfg.CipherFile)

		if _, err := os.Stat(cfg.CipherFile); err == nil && !forceKeygen {
			return fmt.Errorf("key file %s already exists (use --force to replace it)", cfg.CipherFile)
		}
		if err := codec.Generate(); err != nil {
			return err
		}
		fmt.Printf("cipher key written to %s\n", cfg.CipherFile)
		return nil
	},
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the locally tracked tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		database, err := db.Connect(cfg.ConnString())
		if err != nil {
			return fmt.Errorf("connect db: %w", err)
		}
		defer database.Close()

		tasks, err := store.New(database).ListTasks(context.Background())
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Name", "Owner", "Days", "Delay", "Tags", "Official"})
		for _, task := range tasks {
			t.AppendRow(table.Row{task.ID, task.Name, task.Owner, task.Days, task.Delay, len(task.TagIDs), task.Official})
		}
		t.Render()
		return nil
	},
}

func main() {
	keygenCmd.Flags().BoolVar(&forceKeygen, "force", false, "replace an existing key file")
	rootCmd.AddCommand(runCmd, keygenCmd, tasksCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
