// Command demo walks through the engine end to end: writes, reads, an
// update, a delete, a flush to L0, a merge down to L1, a scan, and a
// reload from disk to show recovery.
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/keymerge/lsmkv/codec"
	"github.com/keymerge/lsmkv/lsm"
	"github.com/keymerge/lsmkv/vfs"
)

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func main() {
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println("lsmkv demo: an embedded, ordered, log-structured merge-tree store")
	fmt.Println(strings.Repeat("=", 72))

	dataDir := "./data-lsmkv-demo"
	defer os.RemoveAll(dataDir)

	dir, err := vfs.NewOSDir(dataDir)
	if err != nil {
		log.Fatal(err)
	}

	db, err := lsm.Open(lsm.DefaultOptions(dir), codec.String{}, codec.Bytes{})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("\n✓ Opened engine at", dataDir)

	testData := map[string]string{
		"user:1001":   `{"name": "Alice", "age": 30, "city": "NYC"}`,
		"user:1002":   `{"name": "Bob", "age": 25, "city": "SF"}`,
		"user:1003":   `{"name": "Charlie", "age": 35, "city": "LA"}`,
		"product:101": `{"name": "Laptop", "price": 999.99}`,
		"product:102": `{"name": "Mouse", "price": 29.99}`,
	}

	fmt.Println("\n[Writing data]")
	for key, value := range testData {
		if err := db.Insert(key, []byte(value)); err != nil {
			log.Printf("Error writing %s: %v", key, err)
			continue
		}
		fmt.Printf("  INSERT %s\n", key)
	}

	fmt.Println("\n[Reading data]")
	for key := range testData {
		value, ok, err := db.Get(key)
		if err != nil {
			log.Printf("Error reading %s: %v", key, err)
		} else if !ok {
			log.Printf("Key not found: %s", key)
		} else {
			fmt.Printf("  GET %s -> %s\n", key, truncate(string(value), 40))
		}
	}

	fmt.Println("\n[Updating a key]")
	db.Insert("user:1001", []byte(`{"name": "Alice Updated", "age": 31, "city": "NYC"}`))
	value, _, _ := db.Get("user:1001")
	fmt.Printf("  GET user:1001 -> %s\n", truncate(string(value), 60))

	fmt.Println("\n[Deleting a key]")
	db.Delete("product:102")
	_, ok, _ := db.Get("product:102")
	fmt.Printf("  GET product:102 -> found=%v (tombstone hides the write)\n", ok)

	fmt.Println("\n[Flushing the memtable to L0]")
	if err := db.FlushMemtable(); err != nil {
		log.Fatal(err)
	}
	printStats(db)

	fmt.Println("\n[Writing more data into a fresh memtable]")
	db.Insert("user:1004", []byte(`{"name": "Dana", "age": 28, "city": "Austin"}`))
	if err := db.FlushMemtable(); err != nil {
		log.Fatal(err)
	}
	printStats(db)

	fmt.Println("\n[Merging all L0 runs into L1]")
	if err := db.Merge([]lsm.Addr{{Level: 0, Index: 0}, {Level: 0, Index: 1}}, 1); err != nil {
		log.Fatal(err)
	}
	printStats(db)

	fmt.Println("\n[Scanning every visible key in order]")
	c, err := db.Scan()
	if err != nil {
		log.Fatal(err)
	}
	c.Start()
	for {
		entry, ok := c.Next()
		if !ok {
			break
		}
		fmt.Printf("  %-14s %s\n", entry.Key, truncate(string(entry.Value), 40))
	}
	c.Close()

	if err := db.Close(); err != nil {
		log.Fatal(err)
	}

	fmt.Println("\n[Reopening to demonstrate WAL/root recovery]")
	db2, err := lsm.Open(lsm.DefaultOptions(dir), codec.String{}, codec.Bytes{})
	if err != nil {
		log.Fatal(err)
	}
	value, ok, _ = db2.Get("user:1004")
	fmt.Printf("  GET user:1004 -> found=%v, value=%s\n", ok, truncate(string(value), 40))
	db2.Close()

	fmt.Println("\n" + strings.Repeat("=", 72))
	fmt.Println("Done.")
}

func printStats(db *lsm.Engine[string, []byte]) {
	s := db.Stats()
	fmt.Printf("  keys=%d l0Files=%d diskBytes=%d walBytes=%d\n",
		s.NumKeys, s.L0Files, s.TotalDiskSize, s.WALBytes)
}
