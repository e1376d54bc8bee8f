//
// Copyright 2024 The Perfsets Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS-IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
//
package storageservice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TsaiHao/Perfsets/analysis"
	"github.com/TsaiHao/Perfsets/server/models"
	"github.com/TsaiHao/Perfsets/tracedata/trace"
	"github.com/TsaiHao/Perfsets/traceparser"
)

var timeNow = time.Now // stubbed for testing

const collectionSuffix = ".collection.json"

// collectionEnvelope is the on-disk representation of a collection: its
// metadata plus the parsed busy slices.
type collectionEnvelope struct {
	Metadata models.Metadata `json:"metadata"`
	Slices   []trace.Slice   `json:"slices"`
}

// FsStorage is a storage service that saves collections as JSON
// envelopes on local disk.
// Implements StorageService
type FsStorage struct {
	*storageBase
	StoragePath string
}

// CreateFSStorage creates a new file system storage service that stores
// its files at storagePath and has an LRU cache of size cacheSize.
func CreateFSStorage(storagePath string, cacheSize int) (*FsStorage, error) {
	sb, err := newStorageBase(cacheSize)
	if err != nil {
		return nil, err
	}
	return &FsStorage{
		storageBase: sb,
		StoragePath: storagePath,
	}, nil
}

// generateUniqueName returns a new unique name suitable for collections.
// It is not required that all unique names be generated via this method:
// unique names may be any string value, but must be unique.
func generateUniqueName(creator string, timeStamp int64) string {
	uid := uuid.New()
	// The format of generated unique names is
	// <UUID>_<timestamp>_<creator-role-tag>.
	return fmt.Sprintf("%s_%x_%s", uid, timeStamp, creator)
}

// UploadFile creates a new collection from the uploaded slice dump and
// saves it to disk.
func (fs *FsStorage) UploadFile(ctx context.Context, req *models.CreateCollectionRequest, file io.Reader) (string, error) {
	slices, err := traceparser.ParseSliceDump(file)
	if err != nil {
		return "", err
	}
	// Validate the slice set up front; a dump that yields no usable
	// collection is rejected at upload rather than at first query.
	collection, err := load.NewCollection(slices)
	if err != nil {
		return "", err
	}

	var creationTime int64
	if req.CreationTime != 0 {
		creationTime = req.CreationTime
	} else {
		creationTime = timeNow().UnixNano()
	}
	start, end := collection.Interval()
	cpus := []int64{}
	for _, cpu := range collection.CPUs() {
		cpus = append(cpus, int64(cpu))
	}
	metadata := models.Metadata{
		CollectionUniqueName: generateUniqueName(req.Creator, creationTime),
		Creator:              req.Creator,
		Description:          req.Description,
		CreationTime:         creationTime,
		StartTimestampNs:     int64(start),
		EndTimestampNs:       int64(end),
		SliceCount:           collection.SliceCount(),
		Cpus:                 cpus,
	}

	if err := fs.saveCollection(metadata, slices); err != nil {
		return "", err
	}
	// Warm the cache.
	if _, err := fs.GetCollection(ctx, metadata.CollectionUniqueName); err != nil {
		return "", err
	}
	return metadata.CollectionUniqueName, nil
}

func (fs *FsStorage) saveCollection(metadata models.Metadata, slices []trace.Slice) error {
	envelope := collectionEnvelope{
		Metadata: metadata,
		Slices:   slices,
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	return os.WriteFile(fs.getCollectionPath(metadata.CollectionUniqueName), raw, 0644)
}

func (fs *FsStorage) getCollectionPath(collectionName string) string {
	return path.Join(fs.StoragePath, collectionName+collectionSuffix)
}

func (fs *FsStorage) getCollectionNameFromFileName(fileName string) string {
	return strings.TrimSuffix(fileName, collectionSuffix)
}

func (fs *FsStorage) getCollectionFromDisk(collectionName string) (*collectionEnvelope, error) {
	raw, err := os.ReadFile(fs.getCollectionPath(collectionName))
	if err != nil {
		return nil, err
	}
	envelope := &collectionEnvelope{}
	if err := json.Unmarshal(raw, envelope); err != nil {
		return nil, err
	}
	return envelope, nil
}

// GetCollection returns an already-saved collection with the given name,
// building its indexes if it is not already cached.
func (fs *FsStorage) GetCollection(ctx context.Context, collectionName string) (*CachedCollection, error) {
	cachedCollection, ok := fs.getCollectionFromCache(collectionName, true /*= addCollection*/)
	if ok {
		if err := cachedCollection.wait(ctx); err != nil {
			return nil, err
		}
		return cachedCollection, cachedCollection.err
	}
	var err error
	defer func() {
		cachedCollection.err = err
		cachedCollection.release()
	}()
	envelope, err := fs.getCollectionFromDisk(collectionName)
	if err != nil {
		return nil, err
	}
	collection, err := load.NewCollection(envelope.Slices)
	if err != nil {
		return nil, err
	}
	cachedCollection.Collection = collection
	cachedCollection.Metadata = envelope.Metadata
	return cachedCollection, nil
}

// GetCollectionMetadata gets the metadata for the collection with the
// given name.
func (fs *FsStorage) GetCollectionMetadata(ctx context.Context, collectionName string) (models.Metadata, error) {
	envelope, err := fs.getCollectionFromDisk(collectionName)
	if err != nil {
		return models.Metadata{}, err
	}
	return envelope.Metadata, nil
}

// EditCollection edits the metadata for the collection with the given
// name.
func (fs *FsStorage) EditCollection(ctx context.Context, req *models.EditCollectionRequest) error {
	if len(req.CollectionName) == 0 {
		return fmt.Errorf("missing required field %q", "collection_name")
	}
	envelope, err := fs.getCollectionFromDisk(req.CollectionName)
	if err != nil {
		return err
	}
	envelope.Metadata.Description = req.Description
	if err := fs.saveCollection(envelope.Metadata, envelope.Slices); err != nil {
		return err
	}
	// The cached copy, if any, now carries stale metadata.
	fs.dropCollectionFromCache(req.CollectionName)
	return nil
}

// DeleteCollection deletes the collection with the given name.
func (fs *FsStorage) DeleteCollection(ctx context.Context, collectionName string) error {
	fs.dropCollectionFromCache(collectionName)
	return os.Remove(fs.getCollectionPath(collectionName))
}

// ListCollectionMetadata returns the metadata of every collection on
// disk, in directory order.
func (fs *FsStorage) ListCollectionMetadata(ctx context.Context) ([]models.Metadata, error) {
	entries, err := os.ReadDir(fs.StoragePath)
	if err != nil {
		return nil, err
	}
	var ret []models.Metadata
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), collectionSuffix) {
			continue
		}
		md, err := fs.GetCollectionMetadata(ctx, fs.getCollectionNameFromFileName(entry.Name()))
		if err != nil {
			return nil, err
		}
		ret = append(ret, md)
	}
	return ret, nil
}
