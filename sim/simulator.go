package sim

import "math"

const minDuration = 0.01
const minSpeed = 1e-6
const staleEventTolerance = 1e-9

// Simulator owns every piece of mutable state in the engine: stations,
// buffers, the job queue, the repair-worker pool, the clock, and the event
// queue. It is single-threaded and non-reentrant; no method suspends or may
// be called concurrently with another.
type Simulator struct {
	cfg Config
	rng *rng

	time         float64
	queue        *eventQueue
	seq          uint64
	currentSpeed float64

	buffers     []int
	jobQueue    []int
	repairQueue []int

	workersAvailable int

	stations []station

	jobsTotal               int
	jobsCompleted           int
	throughputTotal         int
	throughputSinceDecision int

	wipHistory []int
	// RecordHistory controls whether RunToFinish appends the current WIP to
	// wipHistory after every handled event. Defaults to true.
	RecordHistory bool

	tLastDecision float64

	lastEventKind    *EventKind
	lastEventStation *int
}

// NewSimulator validates cfg and returns a freshly constructed Simulator,
// already reset with an entropy seed and zero jobs. Call Reset to choose a
// seed and queue jobs before running it.
func NewSimulator(cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Simulator{
		cfg:           cfg,
		RecordHistory: true,
	}
	s.Reset(nil, 0)
	return s, nil
}

// Reset reseeds the RNG (entropy when seed is nil), zeroes the clock and
// counters, clears queues and history, resets all stations to Idle,
// populates job_queue with 0..nJobs, runs the dispatcher once, and returns
// the initial snapshot.
func (s *Simulator) Reset(seed *uint64, nJobs int) Snapshot {
	s.rng = newRNG(seed)
	s.time = 0
	s.queue = newEventQueue()
	s.seq = 0
	s.currentSpeed = 1.0
	s.throughputTotal = 0
	s.throughputSinceDecision = 0
	s.workersAvailable = s.cfg.WorkersTotal
	s.repairQueue = nil
	s.buffers = make([]int, len(s.cfg.BufferCaps))
	s.stations = make([]station, s.cfg.NStations)
	for i := range s.stations {
		s.stations[i] = newStation()
	}
	s.jobsTotal = nJobs
	s.jobsCompleted = 0
	s.jobQueue = make([]int, nJobs)
	for i := 0; i < nJobs; i++ {
		s.jobQueue[i] = i
	}
	s.wipHistory = nil
	s.tLastDecision = 0
	s.lastEventKind = nil
	s.lastEventStation = nil

	s.ApplyAction(nil)
	return s.Snapshot()
}

// ApplyAction optionally updates the current speed multiplier (unchecked;
// callers are expected to supply a positive value) and runs the push-pull
// dispatcher to quiescence. It is called after Reset, after every handled
// event, and whenever the caller supplies a new speed multiplier directly.
func (s *Simulator) ApplyAction(speedMult *float64) {
	if speedMult != nil {
		s.currentSpeed = *speedMult
	}
	s.dispatch()
}

// dispatch runs the unblock and start passes repeatedly until neither makes
// progress in an iteration. All of it happens at an instantaneous clock
// tick; s.time never changes here.
func (s *Simulator) dispatch() {
	for {
		progress := false

		for i := 0; i < s.cfg.NStations; i++ {
			st := &s.stations[i]
			if st.Status != StatusBlocked || !st.HasFinishedPart {
				continue
			}
			if i == s.cfg.NStations-1 {
				st.Status = StatusIdle
				st.HasFinishedPart = false
				s.throughputTotal++
				s.throughputSinceDecision++
				progress = true
			} else if s.buffers[i] < s.cfg.BufferCaps[i] {
				s.buffers[i]++
				st.Status = StatusIdle
				st.HasFinishedPart = false
				progress = true
			}
		}

		for i := 0; i < s.cfg.NStations; i++ {
			st := &s.stations[i]
			if st.Status != StatusIdle {
				continue
			}

			var canPull bool
			if i == 0 {
				canPull = len(s.jobQueue) > 0
			} else {
				canPull = s.buffers[i-1] > 0
			}
			if !canPull {
				st.Starved = true
				continue
			}

			var jobID *int
			if i == 0 {
				jobID = intPtr(s.jobQueue[0])
				s.jobQueue = s.jobQueue[1:]
			} else {
				s.buffers[i-1]--
			}

			dur := s.sampleProcTime(i, s.currentSpeed)
			st.JobID = jobID
			st.Starved = false
			st.Status = StatusWorking
			st.EndTime = floatPtr(s.time + dur)
			s.schedule(s.time+dur, ServiceComplete, i)
			if s.rng.float64() < s.cfg.FailRate {
				failAt := s.time + s.rng.uniform(dur)
				s.schedule(failAt, MachineFailure, i)
			}
			progress = true
		}

		if !progress {
			return
		}
	}
}

// sampleProcTime draws a service duration for station i at the given speed
// multiplier.
func (s *Simulator) sampleProcTime(i int, speed float64) float64 {
	mean := s.cfg.ProcMeans[i]
	var base float64
	if s.cfg.ProcDists[i] == DistExp {
		lambda := 1.0
		if mean > 1e-9 {
			lambda = 1.0 / mean
		}
		base = s.rng.exponential(lambda)
	} else {
		base = s.rng.uniform(2 * mean)
	}

	speed = maxFloat(speed, minSpeed)
	return maxFloat(base/speed, minDuration)
}

// schedule enqueues a new event, assigning it the next insertion-ordered
// sequence number.
func (s *Simulator) schedule(t float64, kind EventKind, station int) {
	s.queue.push(Event{Time: t, Seq: s.seq, Kind: kind, Station: station})
	s.seq++
}

// advanceTime moves the clock forward to t, updating every station's
// utilization EMA over the elapsed interval first. Requests to move
// backward are no-ops, tolerating floating-point rounding in event times.
func (s *Simulator) advanceTime(t float64) {
	if t < s.time {
		return
	}
	dt := t - s.time
	if dt > 0 {
		decay := math.Pow(1-s.cfg.UtilAlpha, dt)
		for i := range s.stations {
			busy := 0.0
			if s.stations[i].Status == StatusWorking {
				busy = 1.0
			}
			st := &s.stations[i]
			st.UtilEMA = st.UtilEMA*decay + (1-decay)*busy
		}
	}
	s.time = t
}

// RunUntilNextDecision pops events in order, advancing the clock and
// invoking handlers, until one is handled or the queue empties. On a
// handled event it records the event, runs the dispatcher, and returns a
// snapshot; stale events are skipped silently.
func (s *Simulator) RunUntilNextDecision() Snapshot {
	s.throughputSinceDecision = 0

	for {
		evt, ok := s.queue.pop()
		if !ok {
			break
		}
		s.advanceTime(evt.Time)

		var handled bool
		switch evt.Kind {
		case ServiceComplete:
			handled = s.handleServiceComplete(evt.Station)
		case MachineFailure:
			handled = s.handleMachineFailure(evt.Station)
		case RepairComplete:
			handled = s.handleRepairComplete(evt.Station)
		}

		if handled {
			kind := evt.Kind
			station := evt.Station
			s.lastEventKind = &kind
			s.lastEventStation = &station
			s.ApplyAction(nil)
			break
		}
	}

	snap := s.Snapshot()
	s.tLastDecision = s.time
	return snap
}

// RunToFinish runs the dispatch loop to completion: while jobs remain and
// events remain, pop, advance, handle, optionally record WIP history, and
// run the dispatcher. It returns the terminal summary.
func (s *Simulator) RunToFinish() Summary {
	for s.jobsCompleted < s.jobsTotal && s.queue.len() > 0 {
		evt, ok := s.queue.pop()
		if !ok {
			break
		}
		s.advanceTime(evt.Time)

		var handled bool
		switch evt.Kind {
		case ServiceComplete:
			handled = s.handleServiceComplete(evt.Station)
		case MachineFailure:
			handled = s.handleMachineFailure(evt.Station)
		case RepairComplete:
			handled = s.handleRepairComplete(evt.Station)
		}

		if handled {
			if s.RecordHistory {
				s.wipHistory = append(s.wipHistory, s.currentWIP())
			}
			s.ApplyAction(nil)
		}
	}
	return s.Summary()
}

func (s *Simulator) currentWIP() int {
	wip := 0
	for _, b := range s.buffers {
		wip += b
	}
	for _, st := range s.stations {
		if st.Status == StatusWorking || st.Status == StatusBlocked {
			wip++
		}
	}
	return wip
}

// handleServiceComplete ignores out-of-range stations, stations not
// Working, and events whose scheduled end time no longer matches the
// station's (a stale event left behind by a since-superseded service).
func (s *Simulator) handleServiceComplete(sid int) bool {
	if sid >= s.cfg.NStations {
		return false
	}
	st := &s.stations[sid]
	if st.Status != StatusWorking || st.EndTime == nil || absFloat(*st.EndTime-s.time) > staleEventTolerance {
		return false
	}

	st.Status = StatusIdle
	st.EndTime = nil
	st.JobID = nil

	if sid == s.cfg.NStations-1 {
		s.throughputTotal++
		s.throughputSinceDecision++
		s.jobsCompleted++
	} else if s.buffers[sid] < s.cfg.BufferCaps[sid] {
		s.buffers[sid]++
	} else {
		st.Status = StatusBlocked
		st.HasFinishedPart = true
	}
	return true
}

// handleMachineFailure ignores out-of-range stations and stations not
// Working (a failure scheduled for a service that already completed or
// was already interrupted).
func (s *Simulator) handleMachineFailure(sid int) bool {
	if sid >= s.cfg.NStations {
		return false
	}
	st := &s.stations[sid]
	if st.Status != StatusWorking {
		return false
	}

	if sid == 0 {
		if st.JobID != nil {
			s.jobQueue = append([]int{*st.JobID}, s.jobQueue...)
		}
	} else {
		// The upstream buffer is incremented without a capacity check: the
		// part had already been withdrawn from it to feed this station, so
		// this is a return, not a new push. Caps apply only at push-into-
		// downstream events.
		s.buffers[sid-1]++
	}

	st.Status = StatusDown
	st.Starved = false
	st.HasFinishedPart = false
	st.EndTime = nil
	st.Repairing = false
	st.RepairETA = nil

	if s.workersAvailable > 0 {
		s.assignRepairWorker(sid)
	} else if !containsInt(s.repairQueue, sid) {
		s.repairQueue = append(s.repairQueue, sid)
	}
	return true
}

// handleRepairComplete restarts a repaired station and, if a station is
// waiting on the repair queue, hands the freed worker to it.
func (s *Simulator) handleRepairComplete(sid int) bool {
	if sid >= s.cfg.NStations {
		return false
	}
	st := &s.stations[sid]
	if st.Status != StatusDown {
		return false
	}

	st.Status = StatusIdle
	st.Starved = false
	st.HasFinishedPart = false
	st.EndTime = nil
	st.Repairing = false
	st.RepairETA = nil

	s.workersAvailable++
	if s.workersAvailable > s.cfg.WorkersTotal {
		s.workersAvailable = s.cfg.WorkersTotal
	}

	if len(s.repairQueue) > 0 {
		next := s.repairQueue[0]
		s.repairQueue = s.repairQueue[1:]
		if !s.assignRepairWorker(next) {
			s.repairQueue = append([]int{next}, s.repairQueue...)
		}
	}
	return true
}

// assignRepairWorker succeeds iff sid is Down, not already repairing, and a
// worker is available.
func (s *Simulator) assignRepairWorker(sid int) bool {
	if sid >= s.cfg.NStations || s.workersAvailable <= 0 {
		return false
	}
	st := &s.stations[sid]
	if st.Status != StatusDown || st.Repairing {
		return false
	}

	st.Repairing = true
	st.RepairETA = floatPtr(s.time + s.cfg.RepairTime)
	s.workersAvailable--
	s.schedule(s.time+s.cfg.RepairTime, RepairComplete, sid)
	return true
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
