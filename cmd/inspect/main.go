package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"ohtalk/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	flag "github.com/spf13/pflag"
)

type options struct {
	dbPath  string
	prefix  string
	limit   int
	colours bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	opts := options{}
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.StringVarP(&opts.dbPath, "db", "d", "", "Path to the badger directory (BADGER_FILEPATH)")
	fs.StringVarP(&opts.prefix, "prefix", "p", "", "Only show keys under this prefix, e.g. msg:")
	fs.IntVarP(&opts.limit, "limit", "n", 100, "Maximum rows per namespace, 0 for no limit")
	fs.BoolVar(&opts.colours, "colours", true, "Colour namespace headers")
	fs.SetOutput(out)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.dbPath == "" {
		opts.dbPath = os.Getenv("BADGER_FILEPATH")
	}
	if opts.dbPath == "" {
		fs.PrintDefaults()
		return fmt.Errorf("missing --db")
	}

	db, err := openDB(opts.dbPath)
	if err != nil {
		return fmt.Errorf("error while opening badger: %w", err)
	}
	defer db.Close()

	prefixes := repositories.Prefixes
	if opts.prefix != "" {
		prefixes = []string{opts.prefix}
	}
	for _, prefix := range prefixes {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err = dump(db, prefix, opts, out); err != nil {
			return err
		}
	}
	return nil
}

// dump prints one namespace as a table.
func dump(db *badger.DB, prefix string, opts options, out io.Writer) error {
	var rows [][]string
	truncated := false
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			item := it.Item()
			// "freq:" is also a prefix of "freqto:"
			if opts.prefix == "" && !ownNamespace(string(item.Key()), prefix) {
				continue
			}
			if opts.limit > 0 && len(rows) == opts.limit {
				truncated = true
				return nil
			}
			err := item.Value(func(val []byte) error {
				record := repositories.Describe(item.KeyCopy(nil), val)
				at := "--"
				if !record.At.IsZero() {
					at = record.At.Local().Format("2006-01-02 15:04:05")
				}
				rows = append(rows, []string{record.Key, record.ID, at, record.Detail})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	header := fmt.Sprintf("====== %s (%d) ======", strings.TrimSuffix(prefix, ":"), len(rows))
	if opts.colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	fmt.Fprintln(out, header)
	if len(rows) == 0 {
		fmt.Fprintln(out)
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Key", "ID", "Time", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.AppendBulk(rows)
	table.Render()
	if truncated {
		fmt.Fprintf(out, "... more keys under %s, raise --limit\n", prefix)
	}
	fmt.Fprintln(out)
	return nil
}

func ownNamespace(key, prefix string) bool {
	namespace, _, _ := strings.Cut(key, ":")
	return namespace+":" == prefix
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	return badger.Open(opts)
}
