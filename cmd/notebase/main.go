package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/liliang-cn/notebase/pkg/core"
	"github.com/liliang-cn/notebase/pkg/graph"
	"github.com/liliang-cn/notebase/pkg/notebase"
)

var (
	dbPath  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "notebase",
	Short: "CLI tool for the notebase record store",
	Long:  `A command-line interface for managing records, relationships, full-text search and settings in a notebase SQLite store.`,
}

// resolveConfig resolves the store location from flag or environment.
func resolveConfig() notebase.Config {
	cfg := notebase.LoadConfig()
	if dbPath != "" {
		cfg.Path = dbPath
	}
	if verbose {
		cfg.Logger = core.NewStdLogger(core.LevelDebug)
	}
	return cfg
}

func openDB() (*notebase.DB, error) {
	return notebase.Open(resolveConfig())
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := resolveConfig()
		db, err := notebase.Open(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		fmt.Printf("Database initialized at %s\n", cfg.Path)
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:   "create <table>",
	Short: "Create a record from JSON fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fieldsStr, _ := cmd.Flags().GetString("fields")
		fields := map[string]any{}
		if fieldsStr != "" {
			if err := json.Unmarshal([]byte(fieldsStr), &fields); err != nil {
				return fmt.Errorf("invalid fields JSON: %w", err)
			}
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		row, err := db.Create(context.Background(), args[0], fields)
		if err != nil {
			return err
		}
		return printJSON(row)
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch one record by its id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rid, err := core.ParseID(args[0])
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		rows, err := db.Query(context.Background(),
			fmt.Sprintf("SELECT * FROM %s WHERE id = :id", rid.Table),
			map[string]any{"id": args[0]})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("record %s not found", args[0])
		}
		return printJSON(rows[0])
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <statement>",
	Short: "Run a parameterized SQL statement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paramsStr, _ := cmd.Flags().GetString("params")
		params := map[string]any{}
		if paramsStr != "" {
			if err := json.Unmarshal([]byte(paramsStr), &params); err != nil {
				return fmt.Errorf("invalid params JSON: %w", err)
			}
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		rows, err := db.Query(context.Background(), args[0], params)
		if err != nil {
			return err
		}
		return printJSON(rows)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Apply a partial update to a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fieldsStr, _ := cmd.Flags().GetString("fields")
		fields := map[string]any{}
		if fieldsStr != "" {
			if err := json.Unmarshal([]byte(fieldsStr), &fields); err != nil {
				return fmt.Errorf("invalid fields JSON: %w", err)
			}
		}

		rid, err := core.ParseID(args[0])
		if err != nil {
			return err
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		row, err := db.Update(context.Background(), rid.Table, args[0], fields)
		if err != nil {
			return err
		}
		return printJSON(row)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a record and its relationships",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if err := db.Delete(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var relateCmd = &cobra.Command{
	Use:   "relate <source> <relation> <target>",
	Short: "Create or replace a relationship between two records",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataStr, _ := cmd.Flags().GetString("data")
		var data map[string]any
		if dataStr != "" {
			if err := json.Unmarshal([]byte(dataStr), &data); err != nil {
				return fmt.Errorf("invalid data JSON: %w", err)
			}
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		edge, err := db.Relate(context.Background(), args[0], args[1], args[2], data)
		if err != nil {
			return err
		}
		return printJSON(edge)
	},
}

var unrelateCmd = &cobra.Command{
	Use:   "unrelate <source> <relation> <target>",
	Short: "Remove the relationship between two records",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		return db.Graph().Unrelate(context.Background(), args[0], args[1], args[2])
	},
}

var edgesCmd = &cobra.Command{
	Use:   "edges <id> <relation>",
	Short: "List the relationships touching a record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		direction, _ := cmd.Flags().GetString("direction")

		db, err := openDB()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		edges, err := db.Graph().Edges(context.Background(), args[0], args[1], graph.Direction(direction))
		if err != nil {
			return err
		}
		return printJSON(edges)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over sources and notes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		db, err := openDB()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		hits, err := db.SearchText(context.Background(), args[0], limit)
		if err != nil {
			return err
		}
		return printJSON(hits)
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or replace the stored settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		setStr, _ := cmd.Flags().GetString("set")

		db, err := openDB()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		ctx := context.Background()
		if setStr != "" {
			settings := map[string]any{}
			if err := json.Unmarshal([]byte(setStr), &settings); err != nil {
				return fmt.Errorf("invalid settings JSON: %w", err)
			}
			if err := db.UpdateSettings(ctx, settings); err != nil {
				return err
			}
		}

		settings, err := db.Settings(ctx)
		if err != nil {
			return err
		}
		return printJSON(settings)
	},
}

var importCmd = &cobra.Command{
	Use:   "import <table> <file>",
	Short: "Bulk insert records from a JSON array file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ignoreDuplicates, _ := cmd.Flags().GetBool("ignore-duplicates")

		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		var rows []map[string]any
		if err := json.Unmarshal(data, &rows); err != nil {
			return fmt.Errorf("invalid JSON array: %w", err)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		inserted, err := db.BulkInsert(context.Background(), args[0], rows, ignoreDuplicates)
		if err != nil {
			return err
		}
		fmt.Printf("Inserted %d of %d records\n", len(inserted), len(rows))
		return nil
	},
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database file path (overrides NOTEBASE_SQLITE_URL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	createCmd.Flags().String("fields", "", "Record fields as JSON")
	queryCmd.Flags().String("params", "", "Statement parameters as JSON")
	updateCmd.Flags().String("fields", "", "Fields to update as JSON")
	relateCmd.Flags().String("data", "", "Relationship payload as JSON")
	edgesCmd.Flags().String("direction", "both", "Direction (in/out/both)")
	searchCmd.Flags().Int("limit", 10, "Number of results")
	settingsCmd.Flags().String("set", "", "Replace settings with this JSON object")
	importCmd.Flags().Bool("ignore-duplicates", false, "Skip rows that collide instead of aborting")

	rootCmd.AddCommand(initCmd, createCmd, getCmd, queryCmd, updateCmd, deleteCmd,
		relateCmd, unrelateCmd, edgesCmd, searchCmd, settingsCmd, importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
