package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"
)

var (
	ErrNoManifest    = errors.New("no manifest found, run ingest first")
	ErrModelMismatch = errors.New("index was built with a different embedding model")
)

var (
	metaBucket = []byte("manifest")
	docsBucket = []byte("documents")
	metaKey    = []byte("current")
)

// DocumentEntry records one indexed source document.
type DocumentEntry struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Chunks int    `json:"chunks"`
}

// Manifest describes how the index was built.
type Manifest struct {
	BuiltAt        time.Time       `json:"built_at"`
	Backend        string          `json:"backend"`
	Collection     string          `json:"collection"`
	EmbeddingModel string          `json:"embedding_model"`
	Dimension      int             `json:"dimension"`
	ChunkSize      int             `json:"chunk_size"`
	ChunkOverlap   int             `json:"chunk_overlap"`
	Chunks         int             `json:"chunks"`
	Documents      []DocumentEntry `json:"-"`
}

func openManifest(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest %s: %w", path, err)
	}
	return db, nil
}

// SaveManifest replaces the manifest stored at path.
func SaveManifest(path string, m *Manifest) error {
	db, err := openManifest(path)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{metaBucket, docsBucket} {
			if tx.Bucket(name) != nil {
				if err := tx.DeleteBucket(name); err != nil {
					return err
				}
			}
		}
		meta, err := tx.CreateBucket(metaBucket)
		if err != nil {
			return err
		}
		docs, err := tx.CreateBucket(docsBucket)
		if err != nil {
			return err
		}

		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		if err := meta.Put(metaKey, data); err != nil {
			return err
		}
		// zero padded keys keep discovery order under bbolt's byte ordering
		for i, d := range m.Documents {
			data, err := json.Marshal(d)
			if err != nil {
				return err
			}
			if err := docs.Put([]byte(fmt.Sprintf("%08d", i)), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadManifest reads the manifest at path. A missing file gives ErrNoManifest.
func LoadManifest(path string) (*Manifest, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoManifest
	}
	db, err := openManifest(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	m := &Manifest{}
	err = db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(metaBucket)
		if meta == nil {
			return ErrNoManifest
		}
		data := meta.Get(metaKey)
		if data == nil {
			return ErrNoManifest
		}
		if err := json.Unmarshal(data, m); err != nil {
			return fmt.Errorf("failed to decode manifest: %w", err)
		}
		docs := tx.Bucket(docsBucket)
		if docs == nil {
			return nil
		}
		return docs.ForEach(func(_, v []byte) error {
			var d DocumentEntry
			if err := json.Unmarshal(v, &d); err != nil {
				return err
			}
			m.Documents = append(m.Documents, d)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// CheckModel reports whether the index was embedded with model.
func (m *Manifest) CheckModel(model string) error {
	if m.EmbeddingModel != model {
		return fmt.Errorf("%w: built with %q, configured %q", ErrModelMismatch, m.EmbeddingModel, model)
	}
	return nil
}

// WarnOnMismatch logs when the configured embedding model differs from the
// one the index at path was built with. Query vectors from another model are
// not comparable with the stored ones.
func WarnOnMismatch(path, model string) {
	m, err := LoadManifest(path)
	if err != nil {
		log.Debug().Err(err).Str("manifest", path).Msg("Skipping embedding model check")
		return
	}
	if err := m.CheckModel(model); err != nil {
		log.Warn().Err(err).Msg("Embedding model mismatch, answers may be poor until the index is rebuilt")
	}
}
