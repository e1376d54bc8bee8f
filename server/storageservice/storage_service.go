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
// Package storageservice contains services for storing slice collections
package storageservice

import (
	"context"
	"io"
	"sync"

	"github.com/hashicorp/golang-lru/simplelru"

	"github.com/TsaiHao/Perfsets/analysis"
	"github.com/TsaiHao/Perfsets/server/models"
)

// StorageService is an interface containing the APIs that storage
// services expose
type StorageService interface {
	UploadFile(ctx context.Context, req *models.CreateCollectionRequest, file io.Reader) (string, error)
	GetCollection(ctx context.Context, collectionName string) (*CachedCollection, error)
	GetCollectionMetadata(ctx context.Context, collectionName string) (models.Metadata, error)
	EditCollection(ctx context.Context, req *models.EditCollectionRequest) error
	DeleteCollection(ctx context.Context, collectionName string) error
	ListCollectionMetadata(ctx context.Context) ([]models.Metadata, error)
}

// CachedCollection is a collection and its metadata that is stored in
// the LRU cache.
type CachedCollection struct {
	Collection *load.Collection
	Metadata   models.Metadata
	// ready blocks until the collection is ready to be read.
	ready chan struct{}
	// Any error encountered while creating the collection.
	err error
}

func newCachedCollection() *CachedCollection {
	return &CachedCollection{
		ready: make(chan struct{}),
	}
}

// wait blocks until release() has been called on the receiver.  At that
// point, the receiver should no longer be modified.  Returns the
// CachedCollection's error, if returning because release was called, or
// the context's error, if the context was cancelled.
func (cc *CachedCollection) wait(ctx context.Context) error {
	select {
	case <-cc.ready:
		return cc.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// release unblocks any outstanding or future wait calls on the receiver.
// It should only be called when the receiver is fully populated and will
// no longer be modified.
func (cc *CachedCollection) release() {
	close(cc.ready)
}

type storageBase struct {
	lruCache *simplelru.LRU
	mu       sync.Mutex
}

func newStorageBase(cacheSize int) (*storageBase, error) {
	lru, err := simplelru.NewLRU(cacheSize, nil)
	if err != nil {
		return nil, err
	}
	return &storageBase{
		lruCache: lru,
	}, nil
}

func (sb *storageBase) dropCollectionFromCache(collectionName string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.lruCache.Remove(collectionName)
}

// getCollectionFromCache returns the named collection, if it is stored
// in the cache.  It also returns a bool signifying whether the
// collection was in the cache at the start of the call.
// If addCollection is true and the collection was absent, a new, empty,
// CachedCollection is placed in the cache under the provided name; the
// returned bool is still false, though the returned CachedCollection
// will be the newly cached one, which the caller is expected to
// populate and release.
func (sb *storageBase) getCollectionFromCache(collectionName string, addCollection bool) (*CachedCollection, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if cached, ok := sb.lruCache.Get(collectionName); ok {
		return cached.(*CachedCollection), true
	}
	if !addCollection {
		return nil, false
	}
	cc := newCachedCollection()
	sb.lruCache.Add(collectionName, cc)
	return cc, false
}
