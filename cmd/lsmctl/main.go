// Command lsmctl is the administrative CLI for the engine: open a
// directory, run one operation, print the result, exit. Each invocation
// opens the engine fresh and closes it before exiting; there is no
// long-lived server here, just an operator's point tool over a
// single-process embedded store.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keymerge/lsmkv/codec"
	"github.com/keymerge/lsmkv/lsm"
	"github.com/keymerge/lsmkv/vfs"
)

var dirFlag string

func openEngine() (*lsm.Engine[[]byte, []byte], error) {
	dir, err := vfs.NewOSDir(dirFlag)
	if err != nil {
		return nil, err
	}
	return lsm.Open(lsm.DefaultOptions(dir), codec.Bytes{}, codec.Bytes{})
}

func main() {
	root := &cobra.Command{
		Use:           "lsmctl",
		Short:         "Operate an lsmkv engine directory from the command line.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&dirFlag, "dir", "./lsmkv-data", "engine directory")

	root.AddCommand(
		putCmd(),
		getCmd(),
		deleteCmd(),
		scanCmd(),
		flushCmd(),
		mergeCmd(),
		statsCmd(),
		exportCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func putCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Insert a key/value pair.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()
			return e.Insert([]byte(args[0]), []byte(args[1]))
		},
	}
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Look up a key.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()
			v, ok, err := e.Get([]byte(args[0]))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("(not found)")
				return nil
			}
			fmt.Println(string(v))
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a key (writes a tombstone).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()
			return e.Delete([]byte(args[0]))
		},
	}
}

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Print every visible (key, value) pair in ascending order.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()
			c, err := e.Scan()
			if err != nil {
				return err
			}
			defer c.Close()
			c.Start()
			for {
				entry, ok := c.Next()
				if !ok {
					break
				}
				fmt.Printf("%s\t%s\n", entry.Key, entry.Value)
			}
			return nil
		},
	}
}

func flushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Flush the memtable to a new L0 run.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()
			return e.FlushMemtable()
		},
	}
}

// parseAddrs parses a comma-separated list of "level:index" pairs, e.g.
// "0:0,0:1,1:2", into merge targets.
func parseAddrs(s string) ([]lsm.Addr, error) {
	var addrs []lsm.Addr
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lv, idx, found := strings.Cut(part, ":")
		if !found {
			return nil, fmt.Errorf("lsmctl: bad merge target %q, want level:index", part)
		}
		level, err := strconv.Atoi(lv)
		if err != nil {
			return nil, fmt.Errorf("lsmctl: bad level in %q: %w", part, err)
		}
		index, err := strconv.Atoi(idx)
		if err != nil {
			return nil, fmt.Errorf("lsmctl: bad index in %q: %w", part, err)
		}
		addrs = append(addrs, lsm.Addr{Level: level, Index: index})
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("lsmctl: no merge targets given")
	}
	return addrs, nil
}

func mergeCmd() *cobra.Command {
	var targets string
	var targetLevel int
	c := &cobra.Command{
		Use:   "merge",
		Short: "Merge a set of runs (identified by level:index) into target-level.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addrs, err := parseAddrs(targets)
			if err != nil {
				return err
			}
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()
			return e.Merge(addrs, targetLevel)
		},
	}
	c.Flags().StringVar(&targets, "targets", "", "comma-separated level:index addresses, e.g. 0:0,0:1")
	c.Flags().IntVar(&targetLevel, "level", 1, "level the merged run lands on")
	return c
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print engine statistics.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()
			s := e.Stats()
			fmt.Printf("keys:        %d\n", s.NumKeys)
			fmt.Printf("segments:    %d (L0: %d)\n", s.NumSegments, s.L0Files)
			fmt.Printf("disk bytes:  %d\n", s.TotalDiskSize)
			fmt.Printf("wal bytes:   %d\n", s.WALBytes)
			for i, sz := range s.LevelSizes {
				fmt.Printf("L%-2d bytes:   %d\n", i+1, sz)
			}
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write a snappy-compressed snapshot of every visible key to a file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine()
			if err != nil {
				return err
			}
			defer e.Close()
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return e.ExportSnapshot(f)
		},
	}
}
