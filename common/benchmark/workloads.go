package benchmark

import "time"

// StandardWorkloads returns the full benchmark matrix: each entry pairs an
// access mix with a key distribution. Runs take about a minute each.
func StandardWorkloads() []Config {
	return []Config{
		{
			Name:            "write-heavy-uniform",
			WorkloadType:    WorkloadWriteHeavy,
			KeyDistribution: DistUniform,
			NumKeys:         1000000,
			KeySize:         16,
			ValueSize:       100,
			Duration:        60 * time.Second,
			Concurrency:     8,
			PreloadKeys:     100000,
			Seed:            12345,
		},
		{
			Name:            "read-heavy-zipfian",
			WorkloadType:    WorkloadReadHeavy,
			KeyDistribution: DistZipfian,
			NumKeys:         1000000,
			KeySize:         16,
			ValueSize:       100,
			Duration:        60 * time.Second,
			Concurrency:     8,
			PreloadKeys:     500000,
			Seed:            12345,
		},
		{
			Name:            "balanced-uniform",
			WorkloadType:    WorkloadBalanced,
			KeyDistribution: DistUniform,
			NumKeys:         1000000,
			KeySize:         16,
			ValueSize:       100,
			Duration:        60 * time.Second,
			Concurrency:     8,
			PreloadKeys:     100000,
			Seed:            12345,
		},
		{
			Name:            "write-only-sequential",
			WorkloadType:    WorkloadWriteOnly,
			KeyDistribution: DistSequential,
			NumKeys:         1000000,
			KeySize:         16,
			ValueSize:       1000,
			Duration:        30 * time.Second,
			Concurrency:     1,
			PreloadKeys:     0,
			Seed:            12345,
		},
	}
}

// QuickWorkloads returns a trimmed matrix for smoke runs. The engine only
// reorganizes on-disk data when told to (flush and merge are foreground
// operations), so the harness compacts between the preload and measurement
// phases rather than expecting background flushes to kick in at some
// memtable size.
func QuickWorkloads() []Config {
	return []Config{
		{
			Name:            "quick-write-heavy",
			WorkloadType:    WorkloadWriteHeavy,
			KeyDistribution: DistUniform,
			NumKeys:         50000,
			KeySize:         16,
			ValueSize:       100,
			Duration:        15 * time.Second,
			Concurrency:     8,
			PreloadKeys:     5000,
			Seed:            12345,
		},
		{
			Name:            "quick-balanced",
			WorkloadType:    WorkloadBalanced,
			KeyDistribution: DistUniform,
			NumKeys:         50000,
			KeySize:         16,
			ValueSize:       100,
			Duration:        15 * time.Second,
			Concurrency:     8,
			PreloadKeys:     10000,
			Seed:            12345,
		},
		{
			Name:            "quick-read-heavy",
			WorkloadType:    WorkloadReadHeavy,
			KeyDistribution: DistZipfian,
			NumKeys:         50000,
			KeySize:         16,
			ValueSize:       100,
			Duration:        15 * time.Second,
			Concurrency:     8,
			PreloadKeys:     30000,
			Seed:            12345,
		},
	}
}
