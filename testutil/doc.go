// Package testutil provides testing utilities for loctree.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random element bounds, computing
// exact query results, and faking virtual memory under the block pool.
//
// # Random Bounds Generation
//
//	rng := testutil.NewRNG(seed)
//	boxes := rng.UniformBoxes(1000, 100, 2)     // boxes in a 100-half-extent world
//	points := rng.PointBoxes(1000, 100)         // zero-extent positions
//	tight := rng.ClusteredBoxes(1000, 4, 100, 0.5, 0.1)
//
// # Exact Intersection (Ground Truth)
//
//	hits := testutil.BruteForceIntersect(boxes, query)
//
// # Fake Virtual Memory
//
//	vm := testutil.NewRecordingVM(1<<20, 4096)
//	pool, _ := blockpool.New(4096, vm.Start(), 8, bitmap, vm)
//	// ... assert on vm.Calls ...
package testutil
