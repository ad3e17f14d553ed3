package sim

// Status is a station's place in its state machine:
//
//	Idle --(pull input, schedule complete)--> Working
//	Working --(ServiceComplete, downstream has space)--> Idle
//	Working --(ServiceComplete, downstream full, not last)--> Blocked
//	Blocked --(downstream makes space, via dispatcher)--> Idle
//	Working --(MachineFailure)--> Down
//	Down --(RepairComplete)--> Idle
type Status int

const (
	StatusIdle Status = iota
	StatusWorking
	StatusBlocked
	StatusDown
)

// station holds a single station's mutable state. Optional fields (EndTime,
// JobID, RepairETA) are nil-able pointers rather than sentinel values so the
// invariants they're paired with stay checkable.
type station struct {
	Status          Status
	Starved         bool
	EndTime         *float64
	UtilEMA         float64
	HasFinishedPart bool
	JobID           *int
	Repairing       bool
	RepairETA       *float64
}

func newStation() station {
	return station{Status: StatusIdle}
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
