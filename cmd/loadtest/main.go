// Command loadtest drives a running concordance server with a fixed mix of
// concordance queries and reports throughput and latency percentiles.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/client"
	apperrors "github.com/Adithya-Monish-Kumar-K/Parallel-Corpus-Concordance/pkg/errors"
)

type Config struct {
	Addr        string
	Corpus      int
	Concurrency int
	Duration    time.Duration
	Queries     []string
}

type Stats struct {
	totalRequests atomic.Int64
	doneCount     atomic.Int64
	rejectedCount atomic.Int64
	errorCount    atomic.Int64
	units         atomic.Int64
	latencies     []time.Duration
	latenciesMu   sync.Mutex
}

func NewStats() *Stats {
	return &Stats{latencies: make([]time.Duration, 0, 100000)}
}

// RecordRequest counts one request. Rejected requests got a syntax-error
// response; errors are transport failures.
func (s *Stats) RecordRequest(duration time.Duration, units int, err error) {
	s.totalRequests.Add(1)
	switch {
	case err == nil:
		s.doneCount.Add(1)
		s.units.Add(int64(units))
	case errors.Is(err, apperrors.ErrSyntax):
		s.rejectedCount.Add(1)
	default:
		s.errorCount.Add(1)
		return
	}
	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, duration)
	s.latenciesMu.Unlock()
}

func main() {
	addr := flag.String("addr", "localhost:4000", "concordance server address")
	corpusID := flag.Int("corpus", 1, "corpus id to query")
	concurrency := flag.Int("concurrency", 4, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	queries := flag.String("queries", "-> the|-> of the|=> of the|<- de|<-> house <-> casa|-> the * of|=> in the *", "queries separated by |, without corpus id")
	flag.Parse()

	cfg := Config{
		Addr:        *addr,
		Corpus:      *corpusID,
		Concurrency: *concurrency,
		Duration:    *duration,
		Queries:     strings.Split(*queries, "|"),
	}

	fmt.Println("=== Concordance Load Test ===")
	fmt.Printf("Target:      %s (corpus %d)\n", cfg.Addr, cfg.Corpus)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Queries:     %d unique\n", len(cfg.Queries))
	fmt.Println()

	stats := runLoadTest(cfg)
	printReport(stats, cfg.Duration)
}

// requestLine inserts the corpus id after the verb.
func requestLine(query string, corpus int) string {
	verb, terms, _ := strings.Cut(strings.TrimSpace(query), " ")
	return fmt.Sprintf("%s %d %s", verb, corpus, terms)
}

func runLoadTest(cfg Config) *Stats {
	stats := NewStats()
	c := client.New(cfg.Addr, 10*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")

	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			queryIdx := workerID

			for ctx.Err() == nil {
				line := requestLine(cfg.Queries[queryIdx%len(cfg.Queries)], cfg.Corpus)
				queryIdx++

				start := time.Now()
				lines, err := c.Do(ctx, line)
				if ctx.Err() != nil {
					return
				}
				units, _ := client.ParseUnits(lines)
				stats.RecordRequest(time.Since(start), len(units), err)
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func printReport(stats *Stats, duration time.Duration) {
	total := stats.totalRequests.Load()
	done := stats.doneCount.Load()
	rejected := stats.rejectedCount.Load()
	failed := stats.errorCount.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Answered:        %d\n", done)
	fmt.Printf("Rejected:        %d\n", rejected)
	fmt.Printf("Errors:          %d\n", failed)
	fmt.Printf("Units returned:  %d\n", stats.units.Load())

	if total > 0 {
		fmt.Printf("Error Rate:      %.2f%%\n", float64(failed)/float64(total)*100)
		fmt.Printf("Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	stats.latenciesMu.Lock()
	latencies := slices.Clone(stats.latencies)
	stats.latenciesMu.Unlock()

	if len(latencies) > 0 {
		slices.Sort(latencies)

		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Println()
		fmt.Println("=== Latency ===")
		fmt.Printf("Min:    %s\n", latencies[0])
		fmt.Printf("Avg:    %s\n", avg)
		fmt.Printf("P50:    %s\n", percentile(latencies, 50))
		fmt.Printf("P90:    %s\n", percentile(latencies, 90))
		fmt.Printf("P95:    %s\n", percentile(latencies, 95))
		fmt.Printf("P99:    %s\n", percentile(latencies, 99))
		fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])

		var sumSquared float64
		avgFloat := float64(avg)
		for _, l := range latencies {
			diff := float64(l) - avgFloat
			sumSquared += diff * diff
		}
		fmt.Printf("StdDev: %s\n", time.Duration(math.Sqrt(sumSquared/float64(len(latencies)))))
	}

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the server running?")
		os.Exit(1)
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
