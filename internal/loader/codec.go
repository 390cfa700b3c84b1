package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// fileEntry is one loader in the persistence file.
type fileEntry struct {
	X          int32  `yaml:"x"`
	Y          int32  `yaml:"y"`
	Z          int32  `yaml:"z"`
	Active     bool   `yaml:"active"`
	Player     bool   `yaml:"player,omitempty"`
	PlayerName string `yaml:"playerName,omitempty"`
}

// Decode parses a persistence document. Invalid world keys and entries
// without x/y/z are skipped with a warning; missing "active" means true and
// missing "player" means false. Only a document that is not YAML, or whose
// root is not a mapping, is an error.
func Decode(data []byte, log *zap.Logger) (map[uuid.UUID]map[Location]*State, error) {
	out := make(map[uuid.UUID]map[Location]*State)
	if len(bytes.TrimSpace(data)) == 0 {
		return out, nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse loaders: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return out, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null" {
		return out, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse loaders: root is not a mapping (line %d)", root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, listNode := root.Content[i], root.Content[i+1]
		worldID, err := uuid.Parse(keyNode.Value)
		if err != nil {
			log.Warn("ignoring invalid world identifier",
				zap.String("world", keyNode.Value), zap.Int("line", keyNode.Line))
			continue
		}
		if listNode.Kind != yaml.SequenceNode {
			log.Warn("ignoring world without a loader list",
				zap.String("world", keyNode.Value), zap.Int("line", listNode.Line))
			continue
		}
		loaders := out[worldID]
		if loaders == nil {
			loaders = make(map[Location]*State)
		}
		for _, item := range listNode.Content {
			loc, st, ok := decodeEntry(worldID, item)
			if !ok {
				log.Warn("ignoring invalid loader entry",
					zap.String("world", keyNode.Value), zap.Int("line", item.Line))
				continue
			}
			loaders[loc] = st
		}
		if len(loaders) > 0 {
			out[worldID] = loaders
		}
	}
	return out, nil
}

func decodeEntry(worldID uuid.UUID, n *yaml.Node) (Location, *State, bool) {
	if n.Kind != yaml.MappingNode {
		return Location{}, nil, false
	}
	fields := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		fields[n.Content[i].Value] = n.Content[i+1]
	}
	x, okX := intField(fields["x"])
	y, okY := intField(fields["y"])
	z, okZ := intField(fields["z"])
	if !okX || !okY || !okZ {
		return Location{}, nil, false
	}
	st := &State{Active: true}
	if v, ok := boolField(fields["active"]); ok {
		st.Active = v
	}
	if v, ok := boolField(fields["player"]); ok {
		st.OccupantEnabled = v
	}
	if v, ok := stringField(fields["playerName"]); ok {
		st.OccupantName = v
	}
	return Location{World: worldID, X: x, Y: y, Z: z}, st, true
}

// intField accepts any numeric scalar, truncating floats.
func intField(n *yaml.Node) (int32, bool) {
	if n == nil || n.Kind != yaml.ScalarNode {
		return 0, false
	}
	switch n.ShortTag() {
	case "!!int":
		var v int64
		if err := n.Decode(&v); err != nil || v < math.MinInt32 || v > math.MaxInt32 {
			return 0, false
		}
		return int32(v), true
	case "!!float":
		var v float64
		if err := n.Decode(&v); err != nil || math.IsNaN(v) || v < math.MinInt32 || v > math.MaxInt32 {
			return 0, false
		}
		return int32(v), true
	}
	return 0, false
}

// boolField accepts booleans, "true"/"false" strings, and numbers (non-zero is true).
func boolField(n *yaml.Node) (bool, bool) {
	if n == nil || n.Kind != yaml.ScalarNode {
		return false, false
	}
	switch n.ShortTag() {
	case "!!bool":
		var v bool
		if err := n.Decode(&v); err != nil {
			return false, false
		}
		return v, true
	case "!!str":
		return strings.EqualFold(strings.TrimSpace(n.Value), "true"), true
	case "!!int", "!!float":
		v, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			var i int64
			if n.Decode(&i) != nil {
				return false, false
			}
			v = float64(i)
		}
		return int64(v) != 0, true
	}
	return false, false
}

func stringField(n *yaml.Node) (string, bool) {
	if n == nil || n.Kind != yaml.ScalarNode || n.ShortTag() == "!!null" {
		return "", false
	}
	return n.Value, true
}

// Encode renders the registry content as a persistence document. Worlds and
// loaders are written in a stable order.
func Encode(worlds map[uuid.UUID]map[Location]State) ([]byte, error) {
	doc := make(map[string][]fileEntry, len(worlds))
	for id, loaders := range worlds {
		if len(loaders) == 0 {
			continue
		}
		locs := make([]Location, 0, len(loaders))
		for loc := range loaders {
			locs = append(locs, loc)
		}
		sortLocations(locs)
		entries := make([]fileEntry, 0, len(locs))
		for _, loc := range locs {
			st := loaders[loc]
			entries = append(entries, fileEntry{
				X:          loc.X,
				Y:          loc.Y,
				Z:          loc.Z,
				Active:     st.Active,
				Player:     st.OccupantEnabled,
				PlayerName: st.OccupantName,
			})
		}
		doc[id.String()] = entries
	}
	if len(doc) == 0 {
		return []byte{}, nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode loaders: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode loaders: %w", err)
	}
	return buf.Bytes(), nil
}

// FileStore persists the registry to a single YAML file.
type FileStore struct {
	path string
	log  *zap.Logger
}

func NewFileStore(path string, log *zap.Logger) *FileStore {
	return &FileStore{path: path, log: log}
}

func (s *FileStore) Path() string { return s.path }

// BackupPath is where Backup writes the compressed copy.
func (s *FileStore) BackupPath() string { return s.path + ".bak.zst" }

// Load reads and decodes the file. A missing file is an empty registry.
// A file that does not decode at all is moved aside to CorruptPath and also
// loads as an empty registry; only I/O failures are errors.
func (s *FileStore) Load() (map[uuid.UUID]map[Location]*State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[uuid.UUID]map[Location]*State), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	worlds, err := Decode(data, s.log.With(zap.String("file", s.path)))
	if err != nil {
		aside := s.CorruptPath(time.Now())
		if rerr := os.Rename(s.path, aside); rerr != nil {
			return nil, fmt.Errorf("%s: %w (move aside: %v)", s.path, err, rerr)
		}
		s.log.Error("loader file is unreadable; starting with no loaders",
			zap.String("file", s.path), zap.String("moved_to", aside), zap.Error(err))
		return make(map[uuid.UUID]map[Location]*State), nil
	}
	return worlds, nil
}

// CorruptPath is where Load moves a file it cannot decode.
func (s *FileStore) CorruptPath(at time.Time) string {
	return s.path + ".corrupt-" + strconv.FormatInt(at.Unix(), 10)
}

// Save writes the file atomically (temp file + rename).
func (s *FileStore) Save(worlds map[uuid.UUID]map[Location]State) error {
	data, err := Encode(worlds)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// Backup writes a zstd-compressed copy of the current file next to it.
// It returns false when there is no file to back up.
func (s *FileStore) Backup() (bool, error) {
	src, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer src.Close()

	dst, err := os.Create(s.BackupPath())
	if err != nil {
		return false, fmt.Errorf("create backup: %w", err)
	}
	enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		dst.Close()
		return false, fmt.Errorf("init zstd: %w", err)
	}
	if _, err := io.Copy(enc, src); err != nil {
		enc.Close()
		dst.Close()
		return false, fmt.Errorf("compress backup: %w", err)
	}
	if err := enc.Close(); err != nil {
		dst.Close()
		return false, fmt.Errorf("flush backup: %w", err)
	}
	if err := dst.Close(); err != nil {
		return false, fmt.Errorf("close backup: %w", err)
	}
	return true, nil
}

// ReadBackup decompresses a backup written by Backup.
func ReadBackup(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open backup: %w", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("init zstd: %w", err)
	}
	defer dec.Close()
	data, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decompress backup: %w", err)
	}
	return data, nil
}
