package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/datastore"
)

// FileStore persists the endpoint list as a JSON file. The file is rewritten
// wholesale on every save via a temp-file rename.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed endpoint store.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

type workerListFile struct {
	Workers   []string  `json:"workers"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Load reads the persisted endpoint list. A missing file is not an error and
// yields an empty list.
func (s *FileStore) Load() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %v", s.path, err)
	}

	var list workerListFile
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %v", s.path, err)
	}

	return list.Workers, nil
}

// Save rewrites the endpoint list file.
func (s *FileStore) Save(endpoints []string) error {
	data, err := json.MarshalIndent(workerListFile{
		Workers:   endpoints,
		UpdatedAt: time.Now(),
	}, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "workers-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), s.path)
}

// DatastoreStore persists the endpoint list as a single Datastore entity,
// rewritten on every replace and loaded at startup.
type DatastoreStore struct {
	client *datastore.Client
}

// NewDatastoreStore creates a Datastore-backed endpoint store.
func NewDatastoreStore(client *datastore.Client) *DatastoreStore {
	return &DatastoreStore{client: client}
}

type workerListEntity struct {
	Endpoints []string  `datastore:"endpoints,noindex"`
	UpdatedAt time.Time `datastore:"updated_at"`
}

func workerListKey() *datastore.Key {
	return datastore.NameKey("WorkerList", "workers", nil)
}

// Load reads the persisted endpoint list. A missing entity yields an empty
// list.
func (s *DatastoreStore) Load() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var entity workerListEntity
	if err := s.client.Get(ctx, workerListKey(), &entity); err != nil {
		if err == datastore.ErrNoSuchEntity {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load worker list entity: %v", err)
	}

	return entity.Endpoints, nil
}

// Save rewrites the endpoint list entity.
func (s *DatastoreStore) Save(endpoints []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.client.Put(ctx, workerListKey(), &workerListEntity{
		Endpoints: endpoints,
		UpdatedAt: time.Now(),
	})
	return err
}
