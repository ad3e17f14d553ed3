package sim

import "testing"

func TestSampleProcTimeFloorsAtMinDuration(t *testing.T) {
	cfg := Config{
		NStations: 1,
		ProcMeans: []float64{0.0},
		ProcDists: []Dist{DistExp},
	}
	s, err := NewSimulator(cfg)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	for i := 0; i < 1000; i++ {
		dur := s.sampleProcTime(0, 1.0)
		if dur < minDuration {
			t.Fatalf("sample %d: duration %v below floor %v", i, dur, minDuration)
		}
	}
}

func TestSampleProcTimeRespectsSpeedFloor(t *testing.T) {
	cfg := Config{
		NStations: 1,
		ProcMeans: []float64{5.0},
		ProcDists: []Dist{DistUniform},
	}
	s, err := NewSimulator(cfg)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	// An absurdly small speed must clamp to minSpeed, not divide by ~0.
	dur := s.sampleProcTime(0, 1e-12)
	if dur <= 0 || dur != dur { // dur != dur guards against NaN
		t.Fatalf("duration under extreme speed was invalid: %v", dur)
	}
}

func TestSampleProcTimeUniformRange(t *testing.T) {
	cfg := Config{
		NStations: 1,
		ProcMeans: []float64{2.0},
		ProcDists: []Dist{DistUniform},
	}
	s, err := NewSimulator(cfg)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	for i := 0; i < 2000; i++ {
		dur := s.sampleProcTime(0, 1.0)
		if dur < minDuration || dur > 4.0+1e-9 {
			t.Fatalf("sample %d: %v out of expected [0.01, 4.0] range", i, dur)
		}
	}
}
