package esdm

import (
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// Counters are process-wide and shared by every dataset.
var (
	metricSet = metrics.NewSet()

	binsCreated       = metricSet.NewCounter(`esdm_regular_bins_created_total`)
	binsInstalled     = metricSet.NewCounter(`esdm_regular_bins_installed_total`)
	binLoads          = metricSet.NewCounter(`esdm_regular_bin_loads_total`)
	binMerges         = metricSet.NewCounter(`esdm_regular_bin_merges_total`)
	gridCellsFilled   = metricSet.NewCounter(`esdm_grid_cells_filled_total`)
	gridsCompleted    = metricSet.NewCounter(`esdm_grids_completed_total`)
	gridMerges        = metricSet.NewCounter(`esdm_grid_merges_total`)
	backendRetrieves  = metricSet.NewCounter(`esdm_backend_retrieve_total`)
	backendUpdates    = metricSet.NewCounter(`esdm_backend_update_total`)
	backendFailures   = metricSet.NewCounter(`esdm_backend_errors_total`)
	coverSearches     = metricSet.NewCounter(`esdm_cover_searches_total`)
	coverDroppedFrags = metricSet.NewCounter(`esdm_cover_dropped_fragments_total`)
)

// WriteMetrics writes the core's counters to w in Prometheus text format.
func WriteMetrics(w io.Writer) {
	metricSet.WritePrometheus(w)
}
