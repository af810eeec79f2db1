// Command benchmark drives the common/benchmark workload harness against an
// lsmkv engine and prints throughput, latency and amplification figures,
// followed by a range-scan section exercising the Scan cursor surface.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/guptarohit/asciigraph"

	"github.com/keymerge/lsmkv/codec"
	"github.com/keymerge/lsmkv/common"
	"github.com/keymerge/lsmkv/common/benchmark"
	"github.com/keymerge/lsmkv/lsm"
	"github.com/keymerge/lsmkv/vfs"
)

func main() {
	quick := flag.Bool("quick", false, "Run quick benchmarks (shorter duration)")
	workload := flag.String("workload", "all", "Workload to run (all, or a specific Config.Name)")
	duration := flag.Duration("duration", 60*time.Second, "Duration for each benchmark")
	concurrency := flag.Int("concurrency", 8, "Number of concurrent workers")
	flag.Parse()

	fmt.Println("lsmkv Benchmark Suite")
	fmt.Println("======================")
	fmt.Printf("Duration: %v\n", *duration)
	fmt.Printf("Concurrency: %d\n\n", *concurrency)

	var configs []benchmark.Config
	if *quick {
		configs = benchmark.QuickWorkloads()
	} else {
		configs = benchmark.StandardWorkloads()
	}

	if flag.Lookup("duration").Value.String() != flag.Lookup("duration").DefValue {
		for i := range configs {
			configs[i].Duration = *duration
		}
	}
	if flag.Lookup("concurrency").Value.String() != flag.Lookup("concurrency").DefValue {
		for i := range configs {
			configs[i].Concurrency = *concurrency
		}
	}

	if *workload != "all" {
		filtered := make([]benchmark.Config, 0)
		for _, config := range configs {
			if config.Name == *workload {
				filtered = append(filtered, config)
			}
		}
		if len(filtered) == 0 {
			fmt.Printf("Unknown workload: %s\n", *workload)
			os.Exit(1)
		}
		configs = filtered
	}

	runLSM(configs)
}

func runLSM(configs []benchmark.Config) {
	fmt.Println("=== LSM Benchmark ===")

	dir, err := os.MkdirTemp("", "benchmark-lsmkv-*")
	if err != nil {
		fmt.Printf("Failed to create temp dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	vdir, err := vfs.NewOSDir(dir)
	if err != nil {
		fmt.Printf("Failed to open vfs dir: %v\n", err)
		os.Exit(1)
	}

	adapter, err := lsm.NewAdapter(vdir)
	if err != nil {
		fmt.Printf("Failed to create engine: %v\n", err)
		os.Exit(1)
	}
	defer adapter.Close()

	results := runBenchmarks(adapter, configs)
	printSummaryTable(results)

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("RANGE SCAN BENCHMARK")
	fmt.Println(strings.Repeat("=", 80))
	runRangeScanBenchmark(dir)
}

func runBenchmarks(engine common.StorageEngine, configs []benchmark.Config) []*benchmark.Result {
	results := make([]*benchmark.Result, 0)

	for _, config := range configs {
		fmt.Printf("\n=== Running: %s ===\n", config.Name)

		bench := benchmark.NewBenchmark(engine, config)
		result, err := bench.Run()
		if err != nil {
			fmt.Printf("Benchmark failed: %v\n", err)
			continue
		}

		results = append(results, result)
		printResult(result)
	}

	return results
}

func printResult(r *benchmark.Result) {
	fmt.Printf("\n--- Results ---\n")
	fmt.Printf("Throughput: %.0f ops/sec\n", r.OpsPerSec)
	fmt.Printf("Total Ops: %d (writes: %d, reads: %d)\n",
		r.TotalOps, r.WriteOps, r.ReadOps)

	if r.WriteOps > 0 {
		fmt.Printf("\nWrite Latency:\n")
		fmt.Printf("  P50:  %8s\n", r.WriteLatency.P50)
		fmt.Printf("  P95:  %8s\n", r.WriteLatency.P95)
		fmt.Printf("  P99:  %8s\n", r.WriteLatency.P99)
		fmt.Printf("  P999: %8s\n", r.WriteLatency.P999)
	}

	if r.ReadOps > 0 {
		fmt.Printf("\nRead Latency:\n")
		fmt.Printf("  P50:  %8s\n", r.ReadLatency.P50)
		fmt.Printf("  P95:  %8s\n", r.ReadLatency.P95)
		fmt.Printf("  P99:  %8s\n", r.ReadLatency.P99)
		fmt.Printf("  P999: %8s\n", r.ReadLatency.P999)
	}

	fmt.Printf("\nAmplification:\n")
	fmt.Printf("  Write: %.2fx\n", r.WriteAmplification)
	fmt.Printf("  Space: %.2fx\n", r.SpaceAmplification)
	fmt.Printf("\nDisk Usage: %.1f MB\n", r.TotalDiskMB)
}

func printSummaryTable(results []*benchmark.Result) {
	if len(results) == 0 {
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("BENCHMARK SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf("\n%-25s %12s %12s %12s %12s\n",
		"Workload", "Throughput", "Write P99", "Read P99", "Write Amp")
	fmt.Println(strings.Repeat("-", 80))

	for _, r := range results {
		writeP99 := "N/A"
		if r.WriteOps > 0 {
			writeP99 = r.WriteLatency.P99.String()
		}

		readP99 := "N/A"
		if r.ReadOps > 0 {
			readP99 = r.ReadLatency.P99.String()
		}

		fmt.Printf("%-25s %10.0f/s %12s %12s %11.2fx\n",
			r.Config.Name,
			r.OpsPerSec,
			writeP99,
			readP99,
			r.WriteAmplification)
	}

	plotThroughput(results)
}

// plotThroughput renders a quick terminal bar chart of ops/sec across
// workloads, so a terminal-only operator session gets an at-a-glance shape
// of the results instead of just the table above.
func plotThroughput(results []*benchmark.Result) {
	series := make([]float64, len(results))
	for i, r := range results {
		series[i] = r.OpsPerSec
	}
	graph := asciigraph.Plot(series,
		asciigraph.Height(10),
		asciigraph.Caption("ops/sec across workloads, in run order"))
	fmt.Println("\n" + graph)
}

// runRangeScanBenchmark opens a second, throwaway engine under its own
// subdirectory of dir, preloads sequential keys, and times scans of
// increasing size through the cursor surface.
func runRangeScanBenchmark(dir string) {
	scanDir, err := vfs.NewOSDir(dir + "/rangescan")
	if err != nil {
		fmt.Printf("Failed to open scan dir: %v\n", err)
		return
	}
	db, err := lsm.Open(lsm.DefaultOptions(scanDir), codec.String{}, codec.Bytes{})
	if err != nil {
		fmt.Printf("Failed to open engine: %v\n", err)
		return
	}
	defer db.Close()

	fmt.Println("\nPreparing range scan test data...")
	numKeys := 10000
	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("user:%06d", i)
		value := []byte(fmt.Sprintf(`{"id": %d, "name": "user%d"}`, i, i))
		db.Insert(key, value)
	}

	fmt.Println("Running range scans...")
	ranges := []struct {
		name  string
		limit int
	}{
		{"Small (100 keys)", 100},
		{"Medium (1000 keys)", 1000},
		{"Large (5000 keys)", 5000},
		{"Full scan", numKeys},
	}

	for _, r := range ranges {
		c, err := db.Scan()
		if err != nil {
			fmt.Printf("scan failed: %v\n", err)
			continue
		}
		c.Start()

		start := time.Now()
		count := 0
		for count < r.limit {
			if _, ok := c.Next(); !ok {
				break
			}
			count++
		}
		elapsed := time.Since(start)
		c.Close()

		throughput := float64(count) / elapsed.Seconds()
		var avgLatency time.Duration
		if count > 0 {
			avgLatency = elapsed / time.Duration(count)
		}

		fmt.Printf("\n%s:\n", r.name)
		fmt.Printf("  Keys scanned: %d\n", count)
		fmt.Printf("  Duration:     %v\n", elapsed)
		fmt.Printf("  Throughput:   %.0f keys/sec\n", throughput)
		fmt.Printf("  Avg latency:  %v per key\n", avgLatency)
	}
}
