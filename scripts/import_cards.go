package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"

	"github.com/thraizz/wildwood-server-go/internal/game/cards"
)

// Columns understood in the designer CSV export. Order does not matter; the
// header row names them. Missing optional columns are left empty.
var columns = []string{
	"id", "name", "type", "subType", "species", "size", "health", "damage",
	"buyCost", "sellValue", "themes", "description",
	"effect", "amount", "category", "multiplier", "effectSize", "slots",
	"handBonus", "capacity", "regen", "income", "duration", "objective", "reward",
}

var required = []string{"id", "name", "type"}

func main() {
	out := flag.String("out", "cards.yaml", "where to write the catalog document")
	flag.Parse()
	ctx := context.Background()

	// Get CSV file path from args or use default
	csvPath := "data/cards_export.csv"
	if flag.NArg() > 0 {
		csvPath = flag.Arg(0)
	}

	absPath, err := filepath.Abs(csvPath)
	if err != nil {
		log.Fatalf("Failed to get absolute path: %v", err)
	}

	fmt.Println("=== Wildwood Card Import ===")
	fmt.Printf("CSV file: %s\n", absPath)

	file, err := os.Open(absPath)
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	imported, err := parseCards(file)
	if err != nil {
		log.Fatalf("Failed to parse CSV: %v", err)
	}
	fmt.Printf("Parsed %d cards\n", len(imported))

	doc, err := buildDocument(imported)
	if err != nil {
		log.Fatalf("Catalog rejected: %v", err)
	}
	if err := os.WriteFile(*out, doc, 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", *out, err)
	}
	fmt.Printf("✓ Wrote %s\n", *out)

	// Publishing to the content database is optional.
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return
	}

	fmt.Printf("Connecting to database...\n")
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	fmt.Println("✓ Database connection established")

	start := time.Now()
	n, failed := publish(ctx, pool, imported)

	fmt.Println("\n=== Import Complete ===")
	fmt.Printf("✓ Successfully published: %d cards\n", n)
	if failed > 0 {
		fmt.Printf("✗ Failed to publish: %d cards\n", failed)
	}
	fmt.Printf("Time taken: %s\n", time.Since(start))
}

// parseCards reads the designer CSV.
func parseCards(r io.Reader) ([]cards.Card, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSV file is empty or has no data rows")
	}

	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}
	for name := range index {
		if !known(name) {
			log.Printf("Warning: ignoring unknown column %q", name)
		}
	}

	out := make([]cards.Card, 0, len(records)-1)
	for i, record := range records[1:] {
		row := i + 2 // header is row 1
		get := func(name string) string {
			if j, ok := index[name]; ok && j < len(record) {
				return strings.TrimSpace(record[j])
			}
			return ""
		}
		num := func(name string) (int, error) {
			s := get(name)
			if s == "" {
				return 0, nil
			}
			v, err := strconv.Atoi(s)
			if err != nil {
				return 0, fmt.Errorf("row %d: %s: %w", row, name, err)
			}
			return v, nil
		}

		c := cards.Card{
			ID:          get("id"),
			Name:        get("name"),
			Type:        cards.CardType(get("type")),
			SubType:     cards.SubType(get("subType")),
			Species:     cards.Species(get("species")),
			Size:        cards.Size(get("size")),
			Description: get("description"),
			Effect: cards.Effect{
				Kind:      cards.EffectKind(get("effect")),
				Category:  cards.Category(get("category")),
				Size:      cards.Size(get("effectSize")),
				Objective: cards.ObjectiveKind(get("objective")),
			},
		}
		if c.ID == "" {
			return nil, fmt.Errorf("row %d: id is empty", row)
		}
		if themes := get("themes"); themes != "" {
			for _, t := range strings.Split(themes, ";") {
				if t = strings.TrimSpace(t); t != "" {
					c.Themes = append(c.Themes, t)
				}
			}
		}

		for _, f := range []struct {
			name string
			dst  *int
		}{
			{"health", &c.Health},
			{"damage", &c.Damage},
			{"buyCost", &c.BuyCost},
			{"sellValue", &c.SellValue},
			{"amount", &c.Effect.Amount},
			{"multiplier", &c.Effect.Multiplier},
			{"slots", &c.Effect.Slots},
			{"handBonus", &c.Effect.HandBonus},
			{"capacity", &c.Effect.Capacity},
			{"regen", &c.Effect.Regen},
			{"income", &c.Effect.Income},
			{"duration", &c.Effect.Duration},
			{"reward", &c.Effect.Reward},
		} {
			v, err := num(f.name)
			if err != nil {
				return nil, err
			}
			*f.dst = v
		}
		out = append(out, c)
	}
	return out, nil
}

func known(name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}

// buildDocument encodes the cards as a catalog document and checks it the
// same way the server checks its embedded catalog. Ids already used by the
// base catalog are refused.
func buildDocument(imported []cards.Card) ([]byte, error) {
	base, err := cards.LoadBase()
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(base.Cards))
	for _, c := range base.Cards {
		taken[c.ID] = true
	}
	for _, c := range imported {
		if taken[c.ID] {
			return nil, fmt.Errorf("card id %q is already in the base catalog", c.ID)
		}
	}

	doc, err := yaml.Marshal(cards.Definitions{Cards: imported})
	if err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	if _, err := cards.ParseDefinitions(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// publish upserts the cards into the content table in batches.
func publish(ctx context.Context, pool *pgxpool.Pool, imported []cards.Card) (published, failed int) {
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS wildwood_cards (
			id          TEXT PRIMARY KEY,
			definition  JSONB NOT NULL,
			imported_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		log.Printf("Failed to create table: %v", err)
		return 0, len(imported)
	}

	batchSize := 500
	for i := 0; i < len(imported); i += batchSize {
		end := i + batchSize
		if end > len(imported) {
			end = len(imported)
		}
		batch := imported[i:end]

		tx, err := pool.Begin(ctx)
		if err != nil {
			log.Printf("Failed to begin transaction: %v", err)
			failed += len(batch)
			continue
		}

		ok := 0
		for _, c := range batch {
			def, err := json.Marshal(c)
			if err != nil {
				log.Printf("Failed to encode card %s: %v", c.ID, err)
				failed++
				continue
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO wildwood_cards (id, definition, imported_at)
				VALUES ($1, $2, now())
				ON CONFLICT (id) DO UPDATE
				SET definition = EXCLUDED.definition, imported_at = EXCLUDED.imported_at
			`, c.ID, def)
			if err != nil {
				log.Printf("Failed to insert card %s: %v", c.ID, err)
				failed++
				continue
			}
			ok++
		}

		if err := tx.Commit(ctx); err != nil {
			log.Printf("Failed to commit batch: %v", err)
			_ = tx.Rollback(ctx)
			failed += ok
			continue
		}
		published += ok
		fmt.Printf("Progress: %d/%d cards published\n", published, len(imported))
	}
	return published, failed
}
