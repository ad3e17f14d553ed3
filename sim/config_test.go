package sim

import "testing"

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid single station",
			cfg: Config{
				NStations: 1,
				ProcMeans: []float64{1.0},
				ProcDists: []Dist{DistExp},
			},
		},
		{
			name: "valid three stations",
			cfg: Config{
				NStations:  3,
				BufferCaps: []int{2, 2},
				ProcMeans:  []float64{1.0, 2.0, 1.5},
				ProcDists:  []Dist{DistExp, DistUniform, DistExp},
			},
		},
		{
			name:    "zero stations rejected",
			cfg:     Config{NStations: 0},
			wantErr: true,
		},
		{
			name: "mismatched buffer_caps length",
			cfg: Config{
				NStations:  2,
				BufferCaps: []int{1, 1},
				ProcMeans:  []float64{1, 1},
				ProcDists:  []Dist{DistExp, DistExp},
			},
			wantErr: true,
		},
		{
			name: "mismatched proc_means length",
			cfg: Config{
				NStations:  2,
				BufferCaps: []int{1},
				ProcMeans:  []float64{1},
				ProcDists:  []Dist{DistExp, DistExp},
			},
			wantErr: true,
		},
		{
			name: "mismatched proc_dists length",
			cfg: Config{
				NStations:  2,
				BufferCaps: []int{1},
				ProcMeans:  []float64{1, 1},
				ProcDists:  []Dist{DistExp},
			},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
