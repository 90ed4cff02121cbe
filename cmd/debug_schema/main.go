package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/burakenal/data/core/config"
	"github.com/burakenal/data/core/database"
	"github.com/burakenal/data/core/query"

	"go.uber.org/zap"
)

// debug_schema prints what the inspector, the schema cache and the
// materializer each make of one table.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: debug_schema <table>")
	}
	name := os.Args[1]

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	adapter, err := database.NewAdapter(db, cfg.Adapter, zap.NewNop())
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()

	fmt.Println("=== Inspected Columns ===")
	cols, err := database.GetTableColumns(ctx, db, name)
	if err != nil {
		log.Fatal(err)
	}
	for _, c := range cols {
		fmt.Printf("%-24s %-20s null=%-3s key=%-3s extra=%s\n", c.Field, c.Type, c.Null, c.Key, c.Extra)
	}

	fmt.Println("\n=== Stored Schema ===")
	schema, err := adapter.SchemaCache().TableSchema(ctx, name)
	if err != nil {
		log.Fatal(err)
	}
	for _, c := range schema {
		fmt.Printf("%-24s %-8s key=%v identity=%v nullable=%v\n", c.Name, c.Type, c.IsKey, c.IsIdentity, c.Nullable)
	}

	fmt.Println("\n=== Materialized Sample ===")
	t, err := adapter.ToTable(ctx, query.From(name).WithTake(5))
	if err != nil {
		log.Fatal(err)
	}
	for _, c := range t.Columns() {
		fmt.Printf("%-24s %-8s identity=%v\n", c.Name, c.Type, c.IsIdentity)
	}
	fmt.Printf("Rows read: %d\n", t.Len())

	rows := make([]map[string]any, 0, t.Len())
	for _, r := range t.Rows() {
		rows = append(rows, r.Values())
	}
	output := map[string]any{
		"table":   name,
		"dialect": adapter.Dialect(),
		"columns": cols,
		"schema":  t.Columns(),
		"sample":  rows,
	}
	data, _ := json.MarshalIndent(output, "", "  ")
	os.WriteFile("debug_schema.json", data, 0644)

	fmt.Println("\nDebug complete. Check debug_schema.json for details.")
}
