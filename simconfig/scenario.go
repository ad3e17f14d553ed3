package simconfig

import (
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"factorysim/sim"
)

// outerScenario mirrors reinforcement.OuterConfig's kind/def envelope: viper
// reads the file into a generic map, then the "def" section is re-marshaled
// through yaml.v3 into the typed Scenario below. Viper alone won't decode
// into typed slices of our own structs cleanly, so it only does file
// discovery and format sniffing here.
type outerScenario struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// Station describes one line station's parameters in scenario YAML. The yaml
// tags are lowercase because viper lowercases every key it reads, so the
// re-marshaled "def" section only ever carries lowercase keys.
type Station struct {
	ProcMean float64 `yaml:"procmean"`
	ProcDist string  `yaml:"procdist"`
	Buffer   int     `yaml:"buffer"`
}

// Scenario is the on-disk shape of a factory layout: a list of stations
// plus the shared line parameters that apply across them.
type Scenario struct {
	Stations     []Station `yaml:"stations"`
	UtilAlpha    float64   `yaml:"utilalpha"`
	FailRate     float64   `yaml:"failrate"`
	RepairTime   float64   `yaml:"repairtime"`
	WorkersTotal int       `yaml:"workerstotal"`
	Jobs         int       `yaml:"jobs"`
	Seed         *uint64   `yaml:"seed"`
	RecordWIP    *bool     `yaml:"recordwip"`
}

// RecordHistory reports whether a Simulator loaded from this scenario
// should append WIP to its history on RunToFinish. Defaults to true,
// matching Simulator.RecordHistory's own default, when the scenario file
// is silent on it.
func (sc *Scenario) RecordHistory() bool {
	if sc.RecordWIP == nil {
		return true
	}
	return *sc.RecordWIP
}

// Load reads a scenario YAML file at path. It follows the same viper ->
// yaml.v3 double-unmarshal used for RL training configs: viper locates and
// parses the file, then the typed fields are decoded a second time with
// yaml.v3 so slice-of-struct fields round-trip correctly.
func Load(path string) (*Scenario, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return nil, err
	}

	outer := &outerScenario{}
	if err := vp.Unmarshal(outer); err != nil {
		return nil, err
	}

	raw, err := yaml.Marshal(outer.Def)
	if err != nil {
		return nil, err
	}

	scenario := &Scenario{}
	if err := yaml.Unmarshal(raw, scenario); err != nil {
		return nil, err
	}
	return scenario, nil
}

// ToSimConfig converts the scenario into the engine's Config. Line parameters
// are copied as given, with no defaulting; BufferCaps takes each station's
// buffer except the last station's, and any procDist other than "uniform"
// maps to DistExp.
func (sc *Scenario) ToSimConfig() sim.Config {
	n := len(sc.Stations)
	cfg := sim.Config{
		NStations:    n,
		ProcMeans:    make([]float64, n),
		ProcDists:    make([]sim.Dist, n),
		UtilAlpha:    sc.UtilAlpha,
		FailRate:     sc.FailRate,
		RepairTime:   sc.RepairTime,
		WorkersTotal: sc.WorkersTotal,
	}
	if n > 1 {
		cfg.BufferCaps = make([]int, n-1)
	}
	for i, st := range sc.Stations {
		cfg.ProcMeans[i] = st.ProcMean
		switch st.ProcDist {
		case "uniform":
			cfg.ProcDists[i] = sim.DistUniform
		default:
			cfg.ProcDists[i] = sim.DistExp
		}
		if i < n-1 {
			cfg.BufferCaps[i] = st.Buffer
		}
	}
	return cfg
}
