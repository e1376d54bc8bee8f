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
// Package models contains the JSON request and response types served
// over HTTP.
package models

// CreateCollectionRequest carries the caller-supplied fields of a new
// slice collection; the uploaded dump file travels alongside it in the
// same multipart request.
type CreateCollectionRequest struct {
	// The creator tag for the new collection.
	Creator string `json:"creator"`
	// The collection's description.
	Description string `json:"description"`
	// The time of the collection's creation, in nanoseconds since the
	// epoch.  If zero, the upload time is used.
	CreationTime int64 `json:"creationTime"`
}

// Metadata contains metadata about a collection.
type Metadata struct {
	// The unique name of the collection.
	CollectionUniqueName string `json:"collectionUniqueName"`
	// The creator tag provided at this collection's creation.
	Creator string `json:"creator"`
	// The collection's description.
	Description string `json:"description"`
	// The time of this collection's creation.
	CreationTime int64 `json:"creationTime"`
	// The half-open time range covered by the collection's busy slices.
	StartTimestampNs int64 `json:"startTimestampNs"`
	EndTimestampNs   int64 `json:"endTimestampNs"`
	// The number of busy slices in the collection.
	SliceCount int `json:"sliceCount"`
	// The CPUs observed in the collection.
	Cpus []int64 `json:"cpus"`
}

// EditCollectionRequest is a request to update a collection's mutable
// metadata.
type EditCollectionRequest struct {
	CollectionName string `json:"collectionName"`
	Description    string `json:"description"`
}

// ListCollectionsResponse lists the metadata of every stored collection.
type ListCollectionsResponse struct {
	Collections []Metadata `json:"collections"`
}
