// Command catalogctl queries the product catalog through the cache layer and
// manages cached entries.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/goliatone/go-catalog-cache/catalog"
	"github.com/goliatone/go-catalog-cache/internal/config"
	"github.com/goliatone/go-catalog-cache/pkg/di"
	"github.com/goliatone/go-catalog-cache/query"
)

const usage = `Usage:
  catalogctl [-config FILE] [-seed FILE] products [-q QUERY]
  catalogctl [-config FILE] [-seed FILE] product ID
  catalogctl [-config FILE] [-seed FILE] count [-q QUERY]
  catalogctl [-config FILE] [-seed FILE] categories [-q QUERY]
  catalogctl [-config FILE] invalidate TAG...
  catalogctl [-config FILE] clear

QUERY uses URL query syntax, e.g. "start_price=100&end_price=400&sort_by=price".
`

// errUsage makes run exit with status 2.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("catalogctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "", "YAML configuration file")
	seedPath := fs.String("seed", "", "JSON catalog to load before running (memory document backend)")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}

	c, err := di.NewContainer(ctx, cfg)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	defer c.Close(context.WithoutCancel(ctx))

	if *seedPath != "" {
		if err := seed(ctx, c, *seedPath); err != nil {
			fmt.Fprintln(stderr, "Error:", err)
			return 1
		}
	}

	err = dispatch(ctx, c, fs.Arg(0), fs.Args()[1:], stdout, stderr)
	switch {
	case errors.Is(err, errUsage):
		fs.Usage()
		return 2
	case err != nil:
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func dispatch(ctx context.Context, c *di.Container, cmd string, args []string, stdout, stderr io.Writer) error {
	switch cmd {
	case "products":
		req, err := requestFlag(cmd, args, stderr)
		if err != nil {
			return err
		}
		products, err := c.Products()
		if err != nil {
			return err
		}
		page, err := products.ListPage(ctx, req)
		if err != nil {
			return err
		}
		return writeJSON(stdout, page)

	case "product":
		if len(args) != 1 {
			return errUsage
		}
		products, err := c.Products()
		if err != nil {
			return err
		}
		p, err := products.GetByID(ctx, args[0])
		if err != nil {
			return err
		}
		return writeJSON(stdout, p)

	case "count":
		req, err := requestFlag(cmd, args, stderr)
		if err != nil {
			return err
		}
		products, err := c.Products()
		if err != nil {
			return err
		}
		n, err := products.Count(ctx, req.Filter)
		if err != nil {
			return err
		}
		return writeJSON(stdout, map[string]int64{"total": n})

	case "categories":
		req, err := requestFlag(cmd, args, stderr)
		if err != nil {
			return err
		}
		categories, err := c.Categories()
		if err != nil {
			return err
		}
		page, err := categories.ListPage(ctx, req)
		if err != nil {
			return err
		}
		return writeJSON(stdout, page)

	case "invalidate":
		if len(args) == 0 {
			return errUsage
		}
		if err := c.Aside().Invalidate(ctx, args...); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "OK")
		return nil

	case "clear":
		if len(args) != 0 {
			return errUsage
		}
		if err := c.Aside().Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "OK")
		return nil
	}
	return errUsage
}

// requestFlag parses the -q flag of a read subcommand into a request.
func requestFlag(cmd string, args []string, stderr io.Writer) (query.Request, error) {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	q := fs.String("q", "", "filter, page and sort parameters in URL query syntax")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return query.Request{}, errUsage
	}

	values, err := url.ParseQuery(*q)
	if err != nil {
		return query.Request{}, fmt.Errorf("parse -q: %w", err)
	}
	return query.ParseRequest(values)
}

type seedFile struct {
	Categories []catalog.Category `json:"categories"`
	Materials  []catalog.Material `json:"materials"`
	Colors     []catalog.Color    `json:"colors"`
	Products   []catalog.Product  `json:"products"`
}

// seed inserts the catalog in path as is, ids and timestamps included.
func seed(ctx context.Context, c *di.Container, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	var f seedFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("seed %s: %w", path, err)
	}

	if err := insertAll(ctx, c.Collection(di.CategoriesCollection), f.Categories); err != nil {
		return err
	}
	if err := insertAll(ctx, c.Collection(di.MaterialsCollection), f.Materials); err != nil {
		return err
	}
	if err := insertAll(ctx, c.Collection(di.ColorsCollection), f.Colors); err != nil {
		return err
	}
	return insertAll(ctx, c.Collection(di.ProductsCollection), f.Products)
}

func insertAll[T any](ctx context.Context, coll catalog.Collection, records []T) error {
	for i := range records {
		if err := coll.Insert(ctx, &records[i]); err != nil {
			return fmt.Errorf("seed %s: %w", coll.Name(), err)
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
