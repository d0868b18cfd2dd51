// Package esdm decides how an N-dimensional array dataset is cut into
// rectangular fragments and answers read and write requests against them.
//
// A Dataset owns a fragment collection. Two strategies are available:
//
//   - Regular binning (the default) cuts the dataset domain into equally
//     sized bins of about one block of bytes. Writes that straddle bins are
//     split and merged into every bin they touch.
//   - List fragments keep every write as-is. Reads pick a non-redundant
//     subset of the overlapping fragments that still covers the request.
//
// Grids are a user-directed alternative: the caller partitions the domain
// into cells (optionally nested), writes exactly one fragment per leaf cell
// and can exchange the resulting structure with peers as JSON or CBOR.
//
// Basic usage:
//
//	d, err := esdm.NewDataset("temperature", []int64{1000, 1000}, 8)
//	if err != nil {
//	    return err
//	}
//	defer d.Close()
//
//	space, _ := esdm.NewDataspace([]int64{0, 0}, []int64{10, 1000}, 8)
//	if err := d.Write(ctx, space, buf); err != nil {
//	    return err
//	}
//
// The package performs no internal locking. Callers serialize mutating calls
// per dataset; read-only queries may run concurrently with each other.
package esdm
