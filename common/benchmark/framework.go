// Package benchmark is a small workload harness for common.StorageEngine
// implementations: preload a dataset, warm up, then hammer the engine with a
// configurable read/write mix for a fixed duration while recording latency
// percentiles and amplification figures.
package benchmark

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/keymerge/lsmkv/common"
)

// WorkloadType selects the read/write mix.
type WorkloadType string

const (
	WorkloadWriteHeavy WorkloadType = "write-heavy" // 95% writes
	WorkloadReadHeavy  WorkloadType = "read-heavy"  // 95% reads
	WorkloadBalanced   WorkloadType = "balanced"    // 50/50
	WorkloadReadOnly   WorkloadType = "read-only"
	WorkloadWriteOnly  WorkloadType = "write-only"
)

// writeFraction maps a WorkloadType to the probability that any one
// operation is a write.
func (w WorkloadType) writeFraction() float64 {
	switch w {
	case WorkloadWriteOnly:
		return 1.0
	case WorkloadReadOnly:
		return 0.0
	case WorkloadWriteHeavy:
		return 0.95
	case WorkloadReadHeavy:
		return 0.05
	default:
		return 0.50
	}
}

// Config describes one benchmark scenario.
type Config struct {
	Name string

	WorkloadType    WorkloadType
	KeyDistribution KeyDistribution

	NumKeys   int // unique keys in the dataset
	KeySize   int // bytes
	ValueSize int // bytes

	Duration    time.Duration
	Concurrency int

	// PreloadKeys are written (and compacted) before measurement starts.
	PreloadKeys int

	Seed int64
}

// Result holds everything one Run measured.
type Result struct {
	Config Config

	TotalOps  int64
	WriteOps  int64
	ReadOps   int64
	Duration  time.Duration
	OpsPerSec float64

	WriteLatency LatencyStats
	ReadLatency  LatencyStats

	WriteAmplification float64
	ReadAmplification  float64
	SpaceAmplification float64

	TotalDiskMB float64

	EngineStats common.Stats
}

// Benchmark drives one Config against one engine.
type Benchmark struct {
	engine common.StorageEngine
	config Config

	writeLatencies *LatencyHistogram
	readLatencies  *LatencyHistogram

	writeCount atomic.Int64
	readCount  atomic.Int64
	errorCount atomic.Int64

	keyGen *KeyGenerator

	// opSeq drives the write-vs-read coin flip deterministically; see
	// nextIsWrite.
	opSeq atomic.Int64
}

func NewBenchmark(engine common.StorageEngine, config Config) *Benchmark {
	return &Benchmark{
		engine:         engine,
		config:         config,
		writeLatencies: NewLatencyHistogram(),
		readLatencies:  NewLatencyHistogram(),
		keyGen:         NewKeyGenerator(config.NumKeys, config.KeySize, config.KeyDistribution, config.Seed),
	}
}

// Run executes the scenario: preload, warm-up (unmeasured), measured
// workload, then result assembly from the engine's own Stats, read once
// after the measured phase.
func (b *Benchmark) Run() (*Result, error) {
	if b.config.PreloadKeys > 0 {
		fmt.Printf("Preloading %d keys...\n", b.config.PreloadKeys)
		if err := b.preload(); err != nil {
			return nil, err
		}
	}

	fmt.Println("Warming up...")
	b.runWorkload(5 * time.Second)

	b.writeLatencies = NewLatencyHistogram()
	b.readLatencies = NewLatencyHistogram()
	b.writeCount.Store(0)
	b.readCount.Store(0)
	b.errorCount.Store(0)

	fmt.Printf("Measuring for %v...\n", b.config.Duration)
	start := time.Now()
	b.runWorkload(b.config.Duration)
	elapsed := time.Since(start)

	stats := b.engine.Stats()

	writeOps := b.writeCount.Load()
	readOps := b.readCount.Load()
	totalOps := writeOps + readOps

	return &Result{
		Config:    b.config,
		TotalOps:  totalOps,
		WriteOps:  writeOps,
		ReadOps:   readOps,
		Duration:  elapsed,
		OpsPerSec: float64(totalOps) / elapsed.Seconds(),

		WriteLatency: b.writeLatencies.Stats(),
		ReadLatency:  b.readLatencies.Stats(),

		WriteAmplification: stats.WriteAmp,
		SpaceAmplification: stats.SpaceAmp,

		TotalDiskMB: float64(stats.TotalDiskSize) / (1 << 20),
		EngineStats: stats,
	}, nil
}

// preload writes the initial dataset sequentially, then compacts so the
// measured phase starts from a settled on-disk layout instead of one giant
// memtable. Flush/merge are foreground operations on this engine, so the
// harness has to ask for them.
func (b *Benchmark) preload() error {
	value := make([]byte, b.config.ValueSize)
	rand.Read(value)

	for i := 0; i < b.config.PreloadKeys; i++ {
		if err := b.engine.Put(b.keyGen.GenerateSequential(i), value); err != nil {
			return err
		}
		if i > 0 && i%10000 == 0 {
			fmt.Printf("  %d keys loaded\n", i)
		}
	}

	if err := b.engine.Compact(); err != nil {
		return err
	}
	return b.engine.Sync()
}

func (b *Benchmark) runWorkload(duration time.Duration) {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < b.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.worker(stop)
		}()
	}
	time.Sleep(duration)
	close(stop)
	wg.Wait()
}

func (b *Benchmark) worker(stop <-chan struct{}) {
	value := make([]byte, b.config.ValueSize)
	rand.Read(value)

	for {
		select {
		case <-stop:
			return
		default:
		}
		if b.nextIsWrite() {
			b.doWrite(value)
		} else {
			b.doRead()
		}
	}
}

// nextIsWrite spreads writes across the op sequence at the configured
// fraction, using a shared counter rather than a locked rand source: the
// exact interleaving doesn't matter, only the long-run ratio.
func (b *Benchmark) nextIsWrite() bool {
	n := b.opSeq.Add(1) % 10000
	return float64(n)/10000.0 < b.config.WorkloadType.writeFraction()
}

func (b *Benchmark) doWrite(value []byte) {
	key := b.keyGen.NextKey()
	start := time.Now()
	err := b.engine.Put(key, value)
	latency := time.Since(start)

	if err != nil {
		b.errorCount.Add(1)
		return
	}
	b.writeLatencies.Record(latency)
	b.writeCount.Add(1)
}

func (b *Benchmark) doRead() {
	key := b.keyGen.NextKey()
	start := time.Now()
	_, err := b.engine.Get(key)
	latency := time.Since(start)

	if err != nil && !errors.Is(err, common.ErrKeyNotFound) {
		b.errorCount.Add(1)
		return
	}
	b.readLatencies.Record(latency)
	b.readCount.Add(1)
}
