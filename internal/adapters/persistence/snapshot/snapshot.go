package snapshot

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/4rubka/ClanMaster/internal/adapters/persistence/repositories"
	"github.com/4rubka/ClanMaster/internal/core/domain"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// Version of the snapshot document layout
const Version = 1

// Header is written as the first line of every snapshot file
type Header struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`
	Clans   int       `json:"clans"`
}

// Store persists the whole registry as one JSON document per save
type Store struct {
	path     string
	compress bool
}

var _ repositories.ClanStorage = (*Store)(nil)

// NewStore creates a snapshot store writing to path
func NewStore(path string, compress bool) *Store {
	return &Store{path: path, compress: compress}
}

// Path returns the snapshot file location
func (s *Store) Path() string { return s.path }

// LoadAll reads the snapshot. Missing file gives an empty registry; a corrupt file
// is moved aside and also gives an empty registry.
func (s *Store) LoadAll(ctx context.Context) (map[string]*domain.Clan, error) {
	clans, err := ReadSnapshot(s.path, s.compress)
	if err == nil {
		return clans, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("⚠️ Snapshot %s not found, starting with empty registry", s.path)
		return map[string]*domain.Clan{}, nil
	}

	log.Printf("❌ Failed to load snapshot %s: %v", s.path, err)
	quarantine := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().Unix())
	if rerr := os.Rename(s.path, quarantine); rerr != nil {
		log.Printf("⚠️ Could not quarantine corrupt snapshot: %v", rerr)
	} else {
		log.Printf("⚠️ Corrupt snapshot moved to %s", quarantine)
	}
	return map[string]*domain.Clan{}, nil
}

// SaveAll writes the full registry. The previous file survives a failed write.
func (s *Store) SaveAll(ctx context.Context, clans map[string]*domain.Clan) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return WriteSnapshot(s.path, clans, s.compress)
}

// SaveClan is a no-op; every save writes the whole document
func (s *Store) SaveClan(ctx context.Context, clan *domain.Clan) error { return nil }

// DeleteClan is a no-op; the next SaveAll drops the clan
func (s *Store) DeleteClan(ctx context.Context, name string) error { return nil }

func (s *Store) FindByActor(actorID uuid.UUID, clans map[string]*domain.Clan) *domain.Clan {
	return repositories.FindByActor(actorID, clans)
}

func (s *Store) Incremental() bool { return false }

func (s *Store) Close() error { return nil }

// WriteSnapshot encodes clans keyed by normalized name into path via a temp file + rename
func WriteSnapshot(path string, clans map[string]*domain.Clan, compress bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := encode(tmp, clans, compress); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func encode(w io.Writer, clans map[string]*domain.Clan, compress bool) error {
	var enc *zstd.Encoder
	if compress {
		var err error
		enc, err = zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		w = enc
	}

	bw := bufio.NewWriterSize(w, 256*1024)
	hb, _ := json.Marshal(Header{Version: Version, SavedAt: time.Now().UTC(), Clans: len(clans)})
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	doc := clans
	if doc == nil {
		doc = map[string]*domain.Clan{}
	}
	if err := json.NewEncoder(bw).Encode(doc); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if enc != nil {
		return enc.Close()
	}
	return nil
}

// ReadSnapshot decodes a snapshot written by WriteSnapshot
func ReadSnapshot(path string, compress bool) (map[string]*domain.Clan, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if compress {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		r = dec
	}

	br := bufio.NewReaderSize(r, 256*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	var hdr Header
	if err := json.Unmarshal(bytes.TrimSpace(line), &hdr); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	if hdr.Version != Version {
		return nil, fmt.Errorf("unsupported snapshot version %d", hdr.Version)
	}

	var doc map[string]*domain.Clan
	if err := json.NewDecoder(br).Decode(&doc); err != nil {
		return nil, fmt.Errorf("json decode: %w", err)
	}

	clans := make(map[string]*domain.Clan, len(doc))
	for key, clan := range doc {
		if clan == nil {
			continue
		}
		clan.EnsureCollections()
		if clan.Name == "" {
			clan.Name = key
		}
		clans[domain.NormalizeName(key)] = clan
	}
	return clans, nil
}
