// Package ngrams stores word n-gram frequencies (n = 2..4) of one corpus
// side in an SQLite database and answers pattern lookups against it.
package ngrams

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
)

const (
	MinN = 2
	MaxN = 4
)

var tables = map[int]string{
	2: "bigrams",
	3: "trigrams",
	4: "tetragrams",
}

// Gram is one n-gram and its frequency.
type Gram struct {
	Words []corpus.WordID
	Count int64
}

// DB is an open n-gram database.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens an existing database. A missing file is reported as
// ErrNotAvailable rather than silently creating an empty database.
func Open(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, apperrors.Newf(apperrors.ErrNotAvailable, "n-gram database %s: %v", path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening n-gram database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening n-gram database: %w", err)
	}
	return &DB{db: db, path: path}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Lookup returns the most frequent n-grams matching pattern, where n is the
// pattern length and corpus.Wildcard matches any word.
func (d *DB) Lookup(ctx context.Context, pattern []corpus.WordID, limit int) ([]Gram, error) {
	n := len(pattern)
	table, ok := tables[n]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrSyntax, "n-grams have %d to %d words, got %d", MinN, MaxN, n)
	}
	cols := columns(n)
	var where []string
	var args []any
	for i, id := range pattern {
		if id == corpus.Wildcard {
			continue
		}
		where = append(where, cols[i]+" = ?")
		args = append(args, id)
	}
	query := "SELECT " + strings.Join(cols, ", ") + ", occs FROM " + table
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY occs DESC, " + strings.Join(cols, ", ") + " LIMIT ?"
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	var grams []Gram
	for rows.Next() {
		words := make([]corpus.WordID, n)
		dest := make([]any, 0, n+1)
		for i := range words {
			dest = append(dest, &words[i])
		}
		var g Gram
		dest = append(dest, &g.Count)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		g.Words = words
		grams = append(grams, g)
	}
	return grams, rows.Err()
}

func columns(n int) []string {
	cols := make([]string, n)
	for i := range cols {
		cols[i] = fmt.Sprintf("word%d", i+1)
	}
	return cols
}

// Counts summarises a Build.
type Counts struct {
	Sentences int
	Grams     map[int]int
}

type key struct {
	n     int
	words [MaxN]corpus.WordID
}

// Build counts every contiguous 2-, 3- and 4-gram inside the sentences of
// the given corpora and writes a fresh database at path.
func Build(ctx context.Context, path string, corpora ...*corpus.Corpus) (Counts, error) {
	counts := Counts{Grams: make(map[int]int)}
	freq := make(map[key]int64)
	for _, c := range corpora {
		for s, ok := c.FirstSentence(); ok; s, ok = c.NextSentence() {
			if counts.Sentences%10000 == 0 {
				if err := ctx.Err(); err != nil {
					return counts, err
				}
			}
			counts.Sentences++
			words := s[:corpus.SentenceLength(s)]
			for i := range words {
				for n := MinN; n <= MaxN && i+n <= len(words); n++ {
					k := key{n: n}
					for j := 0; j < n; j++ {
						k.words[j] = words[i+j].Word
					}
					freq[k]++
					counts.Grams[n]++
				}
			}
		}
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return counts, fmt.Errorf("removing old n-gram database: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return counts, fmt.Errorf("creating n-gram database: %w", err)
	}
	defer db.Close()

	if err := write(ctx, db, freq); err != nil {
		return counts, fmt.Errorf("writing n-gram database: %w", err)
	}
	return counts, nil
}

func write(ctx context.Context, db *sql.DB, freq map[key]int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := make(map[int]*sql.Stmt, len(tables))
	for n, table := range tables {
		cols := columns(n)
		ddl := fmt.Sprintf("CREATE TABLE %s (%s INTEGER NOT NULL, occs INTEGER NOT NULL, PRIMARY KEY (%s))",
			table, strings.Join(cols, " INTEGER NOT NULL, "), strings.Join(cols, ", "))
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("creating %s: %w", table, err)
		}
		idx := fmt.Sprintf("CREATE INDEX %s_occs ON %s (occs)", table, table)
		if _, err := tx.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("indexing %s: %w", table, err)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", n+1), ", ")
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", table, placeholders))
		if err != nil {
			return fmt.Errorf("preparing %s insert: %w", table, err)
		}
		defer stmt.Close()
		stmts[n] = stmt
	}

	for k, occs := range freq {
		args := make([]any, 0, k.n+1)
		for _, w := range k.words[:k.n] {
			args = append(args, w)
		}
		args = append(args, occs)
		if _, err := stmts[k.n].ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}
