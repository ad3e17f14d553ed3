// Package sim implements the discrete-event simulation engine for a serial
// production line: stations connected by bounded buffers, stochastic service
// times, random machine failures, and a pool of shared repair workers.
package sim

import "fmt"

// Dist names a sampling law for a station's service time.
type Dist string

const (
	DistExp     Dist = "exp"
	DistUniform Dist = "uniform"
)

// Config is the immutable configuration of a Simulator, fixed at construction.
type Config struct {
	NStations    int
	BufferCaps   []int
	ProcMeans    []float64
	ProcDists    []Dist
	UtilAlpha    float64
	FailRate     float64
	RepairTime   float64
	WorkersTotal int
}

// Validate reports the first structural error found in cfg.
func (cfg Config) Validate() error {
	if cfg.NStations < 1 {
		return fmt.Errorf("sim: need at least one station, got %d", cfg.NStations)
	}
	wantBuffers := cfg.NStations - 1
	if len(cfg.BufferCaps) != wantBuffers {
		return fmt.Errorf("sim: buffer_caps length must be %d, got %d", wantBuffers, len(cfg.BufferCaps))
	}
	if len(cfg.ProcMeans) != cfg.NStations {
		return fmt.Errorf("sim: proc_means length must equal n_stations (%d), got %d", cfg.NStations, len(cfg.ProcMeans))
	}
	if len(cfg.ProcDists) != cfg.NStations {
		return fmt.Errorf("sim: proc_dists length must equal n_stations (%d), got %d", cfg.NStations, len(cfg.ProcDists))
	}
	return nil
}
