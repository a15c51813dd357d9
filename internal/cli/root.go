// Package cli implements the ecce CLI commands.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rcliao/ecce/internal/store"
	"github.com/spf13/cobra"
)

var dbPath string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "ecce",
	Short: "Ecce Claude CodE - Behold Claude Code",
	Long:  "Watches a Markdown document for embedded ecce prompts, sends them to Claude Code, and writes the responses back in place.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Config database path (default: $ECCE_DB or ~/.ecce/ecce.db)")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("ECCE_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".ecce", "ecce.db")
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath())
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
