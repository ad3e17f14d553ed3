package sim

import "fmt"

// EventRef describes the event that produced a Snapshot, or the zero value
// (Type == nil) for the initial snapshot returned by Reset.
type EventRef struct {
	Type    *string `json:"type"`
	Station *int    `json:"station"`
}

// StationView is the per-station slice of a Snapshot.
type StationView struct {
	Status          int     `json:"status"`
	Remaining       float64 `json:"remaining"`
	UtilEMA         float64 `json:"util_ema"`
	Starved         bool    `json:"starved"`
	Blocked         bool    `json:"blocked"`
	Down            bool    `json:"down"`
	Repairing       bool    `json:"repairing"`
	RepairRemaining float64 `json:"repair_remaining"`
}

// Snapshot is the boundary value returned by Reset and RunUntilNextDecision.
// It is a value copy: no part of it aliases Simulator state.
type Snapshot struct {
	T                  float64          `json:"t"`
	TStart             float64          `json:"t_start"`
	TEnd               float64          `json:"t_end"`
	Event              EventRef         `json:"event"`
	Buffers            map[string]int   `json:"buffers"`
	Stations           []StationView    `json:"stations"`
	Throughput         int              `json:"throughput"`
	WIP                int              `json:"wip"`
	Blocked            int              `json:"blocked"`
	Starved            int              `json:"starved"`
	Down               int              `json:"down"`
	WorkersAvailable   int              `json:"workers_available"`
	WorkersTotal       int              `json:"workers_total"`
	AvgProcessingTime  float64          `json:"avg_processing_time"`
	AvgProcessingSpeed float64          `json:"avg_processing_speed"`
}

// Summary is the boundary value returned by RunToFinish.
type Summary struct {
	TotalJobs        int     `json:"total_jobs"`
	JobsCompleted    int     `json:"jobs_completed"`
	Makespan         float64 `json:"makespan"`
	AvgWIP           float64 `json:"avg_wip"`
	AvgUtil          float64 `json:"avg_util"`
	ThroughputRate   float64 `json:"throughput_rate"`
	DownStations     int     `json:"down_stations"`
	WorkersAvailable int     `json:"workers_available"`
	WorkersTotal     int     `json:"workers_total"`
}

// Snapshot assembles the current engine state into the boundary value
// returned to callers. It performs no mutation.
func (s *Simulator) Snapshot() Snapshot {
	buffers := make(map[string]int, len(s.buffers))
	for i, level := range s.buffers {
		buffers[fmt.Sprintf("b%d%d", i+1, i+2)] = level
	}

	stations := make([]StationView, len(s.stations))
	var working, blocked, starved, down, wip int
	for i, st := range s.stations {
		remaining := 0.0
		if st.Status == StatusWorking && st.EndTime != nil {
			remaining = maxFloat(0, *st.EndTime-s.time)
		}
		repairRemaining := 0.0
		if st.Status == StatusDown && st.RepairETA != nil {
			repairRemaining = maxFloat(0, *st.RepairETA-s.time)
		}

		stations[i] = StationView{
			Status:          int(st.Status),
			Remaining:       remaining,
			UtilEMA:         st.UtilEMA,
			Starved:         st.Starved,
			Blocked:         st.Status == StatusBlocked,
			Down:            st.Status == StatusDown,
			Repairing:       st.Repairing,
			RepairRemaining: repairRemaining,
		}

		switch st.Status {
		case StatusWorking:
			working++
		case StatusBlocked:
			blocked++
		case StatusDown:
			down++
		}
		if st.Starved {
			starved++
		}
	}

	for _, level := range s.buffers {
		wip += level
	}
	wip += working + blocked

	avgProcTime := 0.0
	if len(s.cfg.ProcMeans) > 0 {
		total := 0.0
		for _, m := range s.cfg.ProcMeans {
			total += m
		}
		avgProcTime = total / float64(len(s.cfg.ProcMeans))
	}
	avgProcSpeed := 0.0
	if avgProcTime > 0 {
		avgProcSpeed = 1 / avgProcTime
	}

	var event EventRef
	if s.lastEventKind != nil {
		str := s.lastEventKind.String()
		event = EventRef{Type: &str, Station: s.lastEventStation}
	}

	return Snapshot{
		T:                  s.time,
		TStart:             s.tLastDecision,
		TEnd:               s.time,
		Event:              event,
		Buffers:            buffers,
		Stations:           stations,
		Throughput:         s.throughputSinceDecision,
		WIP:                wip,
		Blocked:            blocked,
		Starved:            starved,
		Down:               down,
		WorkersAvailable:   s.workersAvailable,
		WorkersTotal:       s.cfg.WorkersTotal,
		AvgProcessingTime:  avgProcTime,
		AvgProcessingSpeed: avgProcSpeed,
	}
}

// Summary assembles the terminal boundary value, meant to be read after
// RunToFinish returns.
func (s *Simulator) Summary() Summary {
	avgWIP := 0.0
	if len(s.wipHistory) > 0 {
		total := 0
		for _, w := range s.wipHistory {
			total += w
		}
		avgWIP = float64(total) / float64(len(s.wipHistory))
	}

	avgUtil := 0.0
	if len(s.stations) > 0 {
		total := 0.0
		for _, st := range s.stations {
			total += st.UtilEMA
		}
		avgUtil = total / float64(len(s.stations))
	}

	throughputRate := 0.0
	if s.time > 0 {
		throughputRate = float64(s.jobsCompleted) / s.time
	}

	downStations := 0
	for _, st := range s.stations {
		if st.Status == StatusDown {
			downStations++
		}
	}

	return Summary{
		TotalJobs:        s.jobsTotal,
		JobsCompleted:    s.jobsCompleted,
		Makespan:         s.time,
		AvgWIP:           avgWIP,
		AvgUtil:          avgUtil,
		ThroughputRate:   throughputRate,
		DownStations:     downStations,
		WorkersAvailable: s.workersAvailable,
		WorkersTotal:     s.cfg.WorkersTotal,
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
