// internal/node/types.go
package node

// Info is the identity payload of the in-container `get_node_info` command.
type Info struct {
	Address    string `json:"address"`
	EthAddress string `json:"eth_address"`
	Alias      string `json:"alias"`
	Version    string `json:"version"`
	Running    bool   `json:"running"`
}

// History is the metrics payload of `get_node_history`. Every series is
// indexed by Timestamps; the node occasionally reports series of differing
// lengths, which Reconcile repairs.
type History struct {
	Timestamps        []int64   `json:"timestamps"`
	CPULoad           []float64 `json:"cpu_load"`
	OccupiedMemory    []float64 `json:"occupied_memory"`
	GPULoad           []float64 `json:"gpu_load"`
	GPUOccupiedMemory []float64 `json:"gpu_occupied_memory"`
	Uptime            string    `json:"uptime"`
	CurrentEpoch      int       `json:"current_epoch"`
	CurrentEpochAvail float64   `json:"current_epoch_avail"`
	Version           string    `json:"version"`
}

// Reconcile aligns every metric series to Timestamps by index. A series
// longer than Timestamps keeps its most recent points; a shorter one is
// left-padded with zeros. Empty series stay empty: a node without a GPU
// reports no GPU series at all, and padding would fabricate readings.
func (h *History) Reconcile() {
	n := len(h.Timestamps)
	for _, series := range []*[]float64{&h.CPULoad, &h.OccupiedMemory, &h.GPULoad, &h.GPUOccupiedMemory} {
		*series = alignSeries(*series, n)
	}
}

func alignSeries(s []float64, n int) []float64 {
	switch {
	case len(s) == 0 || len(s) == n:
		return s
	case len(s) > n:
		return s[len(s)-n:]
	default:
		padded := make([]float64, n)
		copy(padded[n-len(s):], s)
		return padded
	}
}

// Points returns the series values paired with their timestamps, most
// recent last. Call Reconcile first when the payload came off the wire.
func (h *History) Points(series []float64) []Point {
	n := len(h.Timestamps)
	if len(series) != n {
		return nil
	}
	pts := make([]Point, n)
	for i := range series {
		pts[i] = Point{Timestamp: h.Timestamps[i], Value: series[i]}
	}
	return pts
}

// Point is one timestamped sample of a metric series.
type Point struct {
	Timestamp int64
	Value     float64
}

// StartupConfig is the node's startup configuration document. Its schema is
// owned by the node image, so it is carried opaquely and rendered back to
// the caller.
type StartupConfig map[string]interface{}

// ConfigApp is the node's application configuration document, carried
// opaquely like StartupConfig.
type ConfigApp map[string]interface{}

// AllowedAddress is one entry of the node's address allow-list.
type AllowedAddress struct {
	Address string `json:"address"`
	Alias   string `json:"alias"`
}
