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

// Package apiservice contains services for fetching analysis results
// for a collection.
package apiservice

import (
	"context"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/TsaiHao/Perfsets/analysis"
	"github.com/TsaiHao/Perfsets/server/models"
	"github.com/TsaiHao/Perfsets/server/storageservice"
	"github.com/TsaiHao/Perfsets/tracedata/trace"
)

// APIService answers analysis queries against stored collections.
type APIService struct {
	StorageService storageservice.StorageService
}

func missingFieldError(fieldName string) error {
	return status.Errorf(codes.InvalidArgument, "missing required field %q", fieldName)
}

// timeRangeFilters converts a request's viewport fields into filters.
// Unset (non-positive) timestamps default to the collection's
// extremities.
func timeRangeFilters(startTimestampNs, endTimestampNs int64) []load.Filter {
	var filters []load.Filter
	if startTimestampNs > 0 {
		filters = append(filters, load.StartTimestamp(trace.Timestamp(startTimestampNs)))
	}
	if endTimestampNs > 0 {
		filters = append(filters, load.EndTimestamp(trace.Timestamp(endTimestampNs)))
	}
	return filters
}

func requestedCPUs(requested []int64, collection *load.Collection) []trace.CPUID {
	if len(requested) == 0 {
		return collection.CPUs()
	}
	cpus := make([]trace.CPUID, 0, len(requested))
	for _, cpu := range requested {
		cpus = append(cpus, trace.CPUID(cpu))
	}
	return cpus
}

// GetLoadCurves returns windowed per-CPU and aggregate utilization
// curves for the requested collection and viewport.
func (s *APIService) GetLoadCurves(ctx context.Context, req *models.LoadCurvesRequest) (*models.LoadCurvesResponse, error) {
	if len(req.CollectionName) == 0 {
		return nil, missingFieldError("collection_name")
	}
	cachedCollection, err := s.StorageService.GetCollection(ctx, req.CollectionName)
	if err != nil {
		return nil, err
	}
	filters := timeRangeFilters(req.StartTimestampNs, req.EndTimestampNs)
	if len(req.Cpus) > 0 {
		filters = append(filters, load.CPUs(requestedCPUs(req.Cpus, cachedCollection.Collection)...))
	}
	series, err := cachedCollection.Collection.UtilizationSeries(req.WindowSizeNs, req.WindowStepNs, filters...)
	if err != nil {
		return nil, err
	}
	cpus := make([]int64, 0, len(series.CPUs))
	for _, cpu := range series.CPUs {
		cpus = append(cpus, int64(cpu))
	}
	return &models.LoadCurvesResponse{
		CollectionName: req.CollectionName,
		Cpus:           cpus,
		CpuLoads:       series.PerCPU,
		AggregateLoad:  series.Aggregate,
		TimestampsNs:   series.TimestampsNs,
	}, nil
}

// GetBusySlices returns the busy slices overlapping the requested
// viewport, grouped by CPU, one group per requested CPU.
func (s *APIService) GetBusySlices(ctx context.Context, req *models.BusySlicesRequest) (*models.BusySlicesResponse, error) {
	if len(req.CollectionName) == 0 {
		return nil, missingFieldError("collection_name")
	}
	cachedCollection, err := s.StorageService.GetCollection(ctx, req.CollectionName)
	if err != nil {
		return nil, err
	}
	cpus := requestedCPUs(req.Cpus, cachedCollection.Collection)
	res := &models.BusySlicesResponse{
		CollectionName: req.CollectionName,
		Slices:         make([]models.CPUSlices, len(cpus)),
	}
	g, _ := errgroup.WithContext(ctx)
	for i, cpu := range cpus {
		i, cpu := i, cpu
		g.Go(func() error {
			filters := append(timeRangeFilters(req.StartTimestampNs, req.EndTimestampNs),
				load.CPUs(cpu),
				load.MinSliceDuration(trace.Duration(req.MinDurationNs)),
				load.TruncateToTimeRange(true))
			slices, err := cachedCollection.Collection.BusySlices(filters...)
			if err != nil {
				return err
			}
			res.Slices[i] = models.CPUSlices{
				CPU:    int64(cpu),
				Slices: slices,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}
