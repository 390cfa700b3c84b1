// loadertool inspects and repairs the chunk loader storage file.
//
// Usage:
//
//	go run ./cmd/loadertool <command> [flags]
//
// Commands: pwhash, dump, restore
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/chunksloader/server/internal/handler"
	"github.com/chunksloader/server/internal/loader"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: loadertool <command> [flags]

Commands:
  pwhash [-cost n] <password>   print a bcrypt hash for [console] password_hash
  dump [-file path]             list the loaders in a storage file or .zst backup
  restore [-file path]          replace the storage file with its .bak.zst backup`)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		printUsage()
		return
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	file := fs.String("file", "data/chunkloaders.yml", "loader storage file")
	cost := fs.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	_ = fs.Parse(os.Args[2:])

	log, _ := zap.NewDevelopment()
	defer log.Sync()

	var err error
	switch cmd {
	case "pwhash":
		err = pwhash(fs.Arg(0), *cost)
	case "dump":
		err = dump(*file, log)
	case "restore":
		err = restore(*file, log)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func pwhash(password string, cost int) error {
	if password == "" {
		return fmt.Errorf("missing password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	fmt.Println(string(hash))
	return nil
}

// readLoaders decodes a storage file, or a backup when the name ends in .zst.
func readLoaders(path string, log *zap.Logger) (map[uuid.UUID]map[loader.Location]*loader.State, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(path, ".zst") {
		data, err = loader.ReadBackup(path)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	return loader.Decode(data, log.With(zap.String("file", path)))
}

func dump(path string, log *zap.Logger) error {
	worlds, err := readLoaders(path, log)
	if err != nil {
		return err
	}
	ids := make([]uuid.UUID, 0, len(worlds))
	for id := range worlds {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	total := 0
	for _, id := range ids {
		locs := make([]loader.Location, 0, len(worlds[id]))
		for loc := range worlds[id] {
			locs = append(locs, loc)
		}
		sort.Slice(locs, func(i, j int) bool {
			a, b := locs[i], locs[j]
			if a.X != b.X {
				return a.X < b.X
			}
			if a.Y != b.Y {
				return a.Y < b.Y
			}
			return a.Z < b.Z
		})
		rows := make([][]string, 0, len(locs))
		for _, loc := range locs {
			st := worlds[id][loc]
			name := "-"
			if st.HasOccupantName() {
				name = st.OccupantName
			}
			rows = append(rows, []string{
				fmt.Sprintf("%d, %d, %d", loc.X, loc.Y, loc.Z),
				st.Phase().String(),
				name,
			})
		}
		fmt.Printf("%s (%d)\n", id, len(locs))
		for _, line := range handler.Table([]string{"block", "state", "occupant"}, rows) {
			fmt.Println("  " + line)
		}
		fmt.Println()
		total += len(locs)
	}
	fmt.Printf("%d loader(s) in %d world(s)\n", total, len(ids))
	return nil
}

func restore(path string, log *zap.Logger) error {
	store := loader.NewFileStore(path, log)
	worlds, err := readLoaders(store.BackupPath(), log)
	if err != nil {
		return err
	}
	out := make(map[uuid.UUID]map[loader.Location]loader.State, len(worlds))
	n := 0
	for id, loaders := range worlds {
		out[id] = make(map[loader.Location]loader.State, len(loaders))
		for loc, st := range loaders {
			out[id][loc] = *st
			n++
		}
	}
	if err := store.Save(out); err != nil {
		return err
	}
	fmt.Printf("Restored %d loader(s) from %s\n", n, store.BackupPath())
	return nil
}
