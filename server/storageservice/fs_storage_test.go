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
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/TsaiHao/Perfsets/server/models"
)

const testSliceDump = `ts,dur,ucpu
0,100,0
150,100,0
50,350,1
600,300,3
`

func createFsStorage(t *testing.T) *FsStorage {
	t.Helper()
	fs, err := CreateFSStorage(t.TempDir(), 5)
	if err != nil {
		t.Fatalf("CreateFSStorage yielded error: %s", err)
	}
	return fs
}

func uploadTestCollection(ctx context.Context, t *testing.T, fs *FsStorage) string {
	t.Helper()
	name, err := fs.UploadFile(ctx, &models.CreateCollectionRequest{
		Creator:     "tester",
		Description: "a test collection",
	}, strings.NewReader(testSliceDump))
	if err != nil {
		t.Fatalf("UploadFile yielded error: %s", err)
	}
	return name
}

func TestUploadFileAndGetCollection(t *testing.T) {
	ctx := context.Background()
	oldTimeNow := timeNow
	timeNow = func() time.Time { return time.Unix(0, 123456789) }
	defer func() { timeNow = oldTimeNow }()

	fs := createFsStorage(t)
	name := uploadTestCollection(ctx, t, fs)

	cachedCollection, err := fs.GetCollection(ctx, name)
	if err != nil {
		t.Fatalf("GetCollection yielded error: %s", err)
	}
	if cachedCollection.Collection == nil {
		t.Fatalf("GetCollection returned a collection without indexes")
	}
	if got := cachedCollection.Collection.SliceCount(); got != 4 {
		t.Errorf("SliceCount: got %d, want 4", got)
	}

	wantMetadata := models.Metadata{
		CollectionUniqueName: name,
		Creator:              "tester",
		Description:          "a test collection",
		CreationTime:         123456789,
		StartTimestampNs:     0,
		EndTimestampNs:       900,
		SliceCount:           4,
		Cpus:                 []int64{0, 1, 3},
	}
	if diff := cmp.Diff(wantMetadata, cachedCollection.Metadata); diff != "" {
		t.Errorf("GetCollection metadata: diff (-want +got) %s", diff)
	}

	diskMetadata, err := fs.GetCollectionMetadata(ctx, name)
	if err != nil {
		t.Fatalf("GetCollectionMetadata yielded error: %s", err)
	}
	if diff := cmp.Diff(wantMetadata, diskMetadata); diff != "" {
		t.Errorf("GetCollectionMetadata: diff (-want +got) %s", diff)
	}
}

func TestUploadFileRejectsEmptyDump(t *testing.T) {
	ctx := context.Background()
	fs := createFsStorage(t)
	if _, err := fs.UploadFile(ctx, &models.CreateCollectionRequest{Creator: "tester"}, strings.NewReader("ts,dur,ucpu\n")); err == nil {
		t.Errorf("UploadFile on an empty dump should have yielded an error")
	}
}

func TestEditCollection(t *testing.T) {
	ctx := context.Background()
	fs := createFsStorage(t)
	name := uploadTestCollection(ctx, t, fs)

	if err := fs.EditCollection(ctx, &models.EditCollectionRequest{
		CollectionName: name,
		Description:    "an edited description",
	}); err != nil {
		t.Fatalf("EditCollection yielded error: %s", err)
	}
	md, err := fs.GetCollectionMetadata(ctx, name)
	if err != nil {
		t.Fatalf("GetCollectionMetadata yielded error: %s", err)
	}
	if md.Description != "an edited description" {
		t.Errorf("Description after edit: got %q, want %q", md.Description, "an edited description")
	}
	// The cached copy is dropped on edit, so a reload sees the new
	// metadata too.
	cachedCollection, err := fs.GetCollection(ctx, name)
	if err != nil {
		t.Fatalf("GetCollection yielded error: %s", err)
	}
	if cachedCollection.Metadata.Description != "an edited description" {
		t.Errorf("cached Description after edit: got %q, want %q", cachedCollection.Metadata.Description, "an edited description")
	}

	if err := fs.EditCollection(ctx, &models.EditCollectionRequest{}); err == nil {
		t.Errorf("EditCollection without a collection name should have yielded an error")
	}
}

func TestListAndDeleteCollections(t *testing.T) {
	ctx := context.Background()
	fs := createFsStorage(t)
	first := uploadTestCollection(ctx, t, fs)
	second := uploadTestCollection(ctx, t, fs)

	mds, err := fs.ListCollectionMetadata(ctx)
	if err != nil {
		t.Fatalf("ListCollectionMetadata yielded error: %s", err)
	}
	if len(mds) != 2 {
		t.Fatalf("ListCollectionMetadata: got %d collections, want 2", len(mds))
	}

	if err := fs.DeleteCollection(ctx, first); err != nil {
		t.Fatalf("DeleteCollection yielded error: %s", err)
	}
	if _, err := fs.GetCollection(ctx, first); err == nil {
		t.Errorf("GetCollection on a deleted collection should have yielded an error")
	}
	mds, err = fs.ListCollectionMetadata(ctx)
	if err != nil {
		t.Fatalf("ListCollectionMetadata yielded error: %s", err)
	}
	if len(mds) != 1 || mds[0].CollectionUniqueName != second {
		t.Errorf("ListCollectionMetadata after delete: got %v, want just %q", mds, second)
	}
}
