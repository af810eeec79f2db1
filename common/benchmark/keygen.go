package benchmark

import (
	"encoding/binary"
	"fmt"
	"math"
	mrand "math/rand"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// KeyDistribution defines how keys are accessed
type KeyDistribution string

const (
	DistUniform    KeyDistribution = "uniform"    // All keys equally likely
	DistZipfian    KeyDistribution = "zipfian"    // 80/20 rule (realistic)
	DistSequential KeyDistribution = "sequential" // Sequential access
	DistLatest     KeyDistribution = "latest"     // Recent keys (time-series)
)

// KeyGenerator generates keys according to distribution. Concurrent workers
// (common/benchmark/framework.go's Benchmark.worker) share one
// KeyGenerator, so every path must be safe for concurrent NextKey() calls.
type KeyGenerator struct {
	numKeys      int
	keySize      int
	distribution KeyDistribution
	seed         uint64

	// mu guards rng/zipf, which math/rand does not make goroutine-safe on
	// its own.
	mu   sync.Mutex
	rng  *mrand.Rand
	zipf *mrand.Zipf

	// seqCounter drives DistSequential/DistUniform lock-free.
	seqCounter atomic.Int64
}

func NewKeyGenerator(numKeys, keySize int, distribution KeyDistribution, seed int64) *KeyGenerator {
	rng := mrand.New(mrand.NewSource(seed))

	kg := &KeyGenerator{
		numKeys:      numKeys,
		keySize:      keySize,
		distribution: distribution,
		seed:         uint64(seed),
		rng:          rng,
	}

	// Setup Zipfian if needed (80/20 distribution)
	if distribution == DistZipfian {
		kg.zipf = mrand.NewZipf(rng, 1.1, 1, uint64(numKeys))
	}

	return kg
}

// hashedKeyNum derives a uniformly distributed key index from a
// monotonically increasing counter via xxhash, instead of taking a lock on
// a shared math/rand.Rand on every call; this is the hot path for DistUniform.
func (kg *KeyGenerator) hashedKeyNum() int {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], kg.seed)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(kg.seqCounter.Add(1)))
	h := xxhash.Sum64(buf[:])
	return int(h % uint64(kg.numKeys))
}

func (kg *KeyGenerator) NextKey() []byte {
	var keyNum int

	switch kg.distribution {
	case DistUniform:
		keyNum = kg.hashedKeyNum()

	case DistZipfian:
		kg.mu.Lock()
		keyNum = int(kg.zipf.Uint64())
		kg.mu.Unlock()

	case DistSequential:
		keyNum = int(kg.seqCounter.Add(1) % int64(kg.numKeys))

	case DistLatest:
		// Access recent keys more often (exponential decay)
		rangeSize := kg.numKeys / 10
		if rangeSize < 100 {
			rangeSize = 100
		}
		kg.mu.Lock()
		offset := int(math.Abs(kg.rng.NormFloat64()) * float64(rangeSize))
		kg.mu.Unlock()
		keyNum = kg.numKeys - 1 - offset
		if keyNum < 0 {
			keyNum = 0
		}

	default:
		keyNum = kg.hashedKeyNum()
	}

	return kg.formatKey(keyNum)
}

func (kg *KeyGenerator) GenerateSequential(n int) []byte {
	return kg.formatKey(n)
}

func (kg *KeyGenerator) formatKey(n int) []byte {
	// Format: user<padded-number>
	// Example: user0000012345
	key := fmt.Sprintf("user%010d", n)

	if len(key) < kg.keySize {
		padding := make([]byte, kg.keySize-len(key))
		// Fill padding with deterministic data based on key number
		if len(padding) >= 8 {
			binary.LittleEndian.PutUint64(padding, uint64(n))
		} else {
			// For small padding, just use sequential bytes
			for i := range padding {
				padding[i] = byte(n + i)
			}
		}
		return append([]byte(key), padding...)
	}

	return []byte(key)[:kg.keySize]
}
