package repl

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/leengari/flatdb/internal/domain/record"
	"github.com/leengari/flatdb/internal/engine"
	"github.com/leengari/flatdb/internal/filter"
)

// Start runs the interactive shell until exit/EOF. It only parses
// commands and prints results; all semantics live in the engine.
func Start(eng *engine.Engine) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Welcome to flatdb")
	fmt.Println("Type 'help' for commands, 'exit' or '\\q' to quit.")

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}
		if line == "exit" || line == "\\q" {
			break
		}
		if line == "help" {
			printHelp()
			continue
		}

		if err := dispatch(eng, strings.Fields(line)); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

func dispatch(eng *engine.Engine, args []string) error {
	switch args[0] {
	case "create":
		if len(args) < 2 {
			return fmt.Errorf("usage: create <table> [column ...]")
		}
		header, err := eng.CreateTable(args[1], args[2:])
		if err != nil {
			return err
		}
		fmt.Printf("Table %s created with columns %s\n", args[1], strings.Join(header, ", "))
		return nil

	case "insert":
		if len(args) < 3 {
			return fmt.Errorf("usage: insert <table> <col>=<value> ...")
		}
		fields, err := parsePairs(args[2:])
		if err != nil {
			return err
		}
		rec, err := eng.Insert(args[1], fields)
		if err != nil {
			return err
		}
		fmt.Printf("Inserted record ID=%s\n", rec[record.ColumnID])
		return nil

	case "query":
		if len(args) < 2 {
			return fmt.Errorf("usage: query <table> [and|or] [equals|contains|startswith|endswith] [<col>=<value> ...]")
		}
		f, cmp, logic, err := parseQueryArgs(args[2:])
		if err != nil {
			return err
		}
		rows, err := eng.Query(args[1], f, cmp, logic)
		if err != nil {
			return err
		}
		return printRows(eng, args[1], rows)

	case "update":
		if len(args) < 2 {
			return fmt.Errorf("usage: update <table> where <col>=<value> ... set <col>=<value> ...")
		}
		where, set, err := splitSections(args[2:])
		if err != nil {
			return err
		}
		n, err := eng.Update(args[1], record.Filter(where), set)
		if err != nil {
			return err
		}
		fmt.Printf("Updated %d record(s)\n", n)
		return nil

	case "delete":
		if len(args) < 3 {
			return fmt.Errorf("usage: delete <table> <col>=<value> ...")
		}
		pairs, err := parsePairs(args[2:])
		if err != nil {
			return err
		}
		n, err := eng.Delete(args[1], record.Filter(pairs))
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d record(s)\n", n)
		return nil

	case "tables":
		names, err := eng.ListTables()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Printf("  - %s\n", name)
		}
		return nil

	case "describe":
		if len(args) != 2 {
			return fmt.Errorf("usage: describe <table>")
		}
		info, err := eng.DescribeTable(args[1])
		if err != nil {
			return err
		}
		fmt.Printf("%s (%d rows): %s\n", info.Name, info.RowCount, strings.Join(info.Columns, ", "))
		return nil

	case "index":
		return dispatchIndex(eng, args[1:])

	case "reindex":
		if len(args) != 2 {
			return fmt.Errorf("usage: reindex <name>")
		}
		if err := eng.Reindex(args[1]); err != nil {
			return err
		}
		fmt.Printf("Index %s rebuilt\n", args[1])
		return nil

	default:
		return fmt.Errorf("unknown command %q (try 'help')", args[0])
	}
}

func dispatchIndex(eng *engine.Engine, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: index create|list|drop ...")
	}
	switch args[0] {
	case "create":
		if len(args) != 4 {
			return fmt.Errorf("usage: index create <table> <column> <name>")
		}
		if err := eng.CreateIndex(args[1], args[2], args[3]); err != nil {
			return err
		}
		fmt.Printf("Index %s created on %s.%s\n", args[3], args[1], args[2])
		return nil

	case "list":
		infos, err := eng.ListIndexes()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTABLE\tCOLUMN\tROWS\tCREATED")
		for _, info := range infos {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				info.Name, info.Table, info.Column, info.RowCount, info.CreatedOn.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()

	case "drop":
		if len(args) != 2 {
			return fmt.Errorf("usage: index drop <name>")
		}
		if err := eng.DeleteIndex(args[1]); err != nil {
			return err
		}
		fmt.Printf("Index %s deleted\n", args[1])
		return nil

	default:
		return fmt.Errorf("unknown index command %q", args[0])
	}
}

// parsePairs turns col=value tokens into a record.
func parsePairs(tokens []string) (record.Record, error) {
	rec := make(record.Record, len(tokens))
	for _, tok := range tokens {
		col, val, ok := strings.Cut(tok, "=")
		if !ok {
			return nil, fmt.Errorf("expected <col>=<value>, got %q", tok)
		}
		rec[col] = val
	}
	return rec, nil
}

// parseQueryArgs sorts tokens into filter pairs and operator words.
// Defaults are AND + equals.
func parseQueryArgs(tokens []string) (record.Filter, filter.Comparison, filter.Logical, error) {
	f := make(record.Filter)
	cmp := filter.CompareEquals
	logic := filter.LogicalAnd

	for _, tok := range tokens {
		switch tok {
		case "and", "or":
			logic = filter.Logical(tok)
		case "equals", "contains", "startswith", "endswith":
			cmp = filter.Comparison(tok)
		default:
			col, val, ok := strings.Cut(tok, "=")
			if !ok {
				return nil, cmp, logic, fmt.Errorf("expected <col>=<value>, got %q", tok)
			}
			f[col] = val
		}
	}
	return f, cmp, logic, nil
}

// splitSections parses "where <pairs> set <pairs>" for update.
func splitSections(tokens []string) (record.Record, record.Record, error) {
	where := make(record.Record)
	set := make(record.Record)
	target := record.Record(nil)

	for _, tok := range tokens {
		switch tok {
		case "where":
			target = where
		case "set":
			target = set
		default:
			if target == nil {
				return nil, nil, fmt.Errorf("expected 'where' or 'set' before %q", tok)
			}
			col, val, ok := strings.Cut(tok, "=")
			if !ok {
				return nil, nil, fmt.Errorf("expected <col>=<value>, got %q", tok)
			}
			target[col] = val
		}
	}
	if len(where) == 0 || len(set) == 0 {
		return nil, nil, fmt.Errorf("both where and set sections are required")
	}
	return where, set, nil
}

// printRows renders records as a table in header column order.
func printRows(eng *engine.Engine, table string, rows []record.Record) error {
	info, err := eng.DescribeTable(table)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(info.Columns, "\t"))
	for _, rec := range rows {
		values := make([]string, len(info.Columns))
		for i, col := range info.Columns {
			values[i] = rec[col]
		}
		fmt.Fprintln(w, strings.Join(values, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("%d record(s)\n", len(rows))
	return nil
}

func printHelp() {
	fmt.Println(`Commands:
  create <table> [column ...]
  insert <table> <col>=<value> ...
  query <table> [and|or] [equals|contains|startswith|endswith] [<col>=<value> ...]
  update <table> where <col>=<value> ... set <col>=<value> ...
  delete <table> <col>=<value> ...
  tables
  describe <table>
  index create <table> <column> <name>
  index list
  index drop <name>
  reindex <name>
  exit`)
}
