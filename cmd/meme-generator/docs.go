package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage saved research documents",
}

var docsListLimit int

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved research documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := buildStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.List(cmd.Context(), docsListLimit, 0)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("no documents saved yet")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tCATEGORY\tCOUNTRY\tSIZE\tFILE")
		for _, e := range entries {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
				e.ID, e.CreatedAt.Format("2006-01-02 15:04"),
				e.Category, e.Country, e.FileSize, e.Filename)
		}
		return w.Flush()
	},
}

var docsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a saved research document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid document id %q", args[0])
		}

		store, err := buildStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		entry, err := store.Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(entry.Path)
		if err != nil {
			return fmt.Errorf("reading document: %w", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved research document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid document id %q", args[0])
		}

		store, err := buildStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("document %d deleted\n", id)
		return nil
	},
}

func init() {
	docsListCmd.Flags().IntVar(&docsListLimit, "limit", 20, "maximum documents to list")
	docsCmd.AddCommand(docsListCmd, docsShowCmd, docsDeleteCmd)
	rootCmd.AddCommand(docsCmd)
}
