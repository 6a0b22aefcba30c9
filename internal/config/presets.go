package config

var Presets = map[string]map[string]*Config{
	"damped-qubit": {
		"weak": {
			Model: "damped-qubit", Solver: "me", Duration: 20.0, Points: 401,
			Params: ParamConfig{Delta: 1.0, Gamma: 0.05},
		},
		"strong": {
			Model: "damped-qubit", Solver: "me", Duration: 5.0, Points: 201,
			Params: ParamConfig{Delta: 1.0, Gamma: 1.0},
		},
		"trajectories": {
			Model: "damped-qubit", Solver: "mc", Duration: 10.0, Points: 201, NTraj: 1000,
			Params: ParamConfig{Delta: 1.0, Gamma: 0.2},
		},
	},
	"rabi": {
		"lossless": {
			Model: "rabi", Solver: "se", Duration: 12.566, Points: 401,
			Params: ParamConfig{Omega: 1.0},
		},
		"damped": {
			Model: "rabi", Solver: "me", Duration: 30.0, Points: 601,
			Params: ParamConfig{Omega: 1.0, Gamma: 0.1},
		},
	},
	"dephasing": {
		"slow": {
			Model: "dephasing", Solver: "me", Duration: 20.0, Points: 401,
			Params: ParamConfig{Delta: 1.0, Kappa: 0.1},
		},
		"fast": {
			Model: "dephasing", Solver: "me", Duration: 4.0, Points: 201,
			Params: ParamConfig{Delta: 1.0, Kappa: 2.0},
		},
	},
	"jaynes-cummings": {
		"vacuum-rabi": {
			Model: "jaynes-cummings", Solver: "se", Duration: 25.0, Points: 501,
			Params: ParamConfig{Delta: 1.0, G: 0.5, Levels: 10},
		},
		"leaky-cavity": {
			Model: "jaynes-cummings", Solver: "me", Duration: 40.0, Points: 401,
			Params: ParamConfig{Delta: 1.0, G: 0.5, Kappa: 0.1, Levels: 10},
		},
		"monte-carlo": {
			Model: "jaynes-cummings", Solver: "mc", Duration: 25.0, Points: 251, NTraj: 500,
			Params: ParamConfig{Delta: 1.0, G: 0.5, Kappa: 0.1, Levels: 10},
		},
	},
}

func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	out := *cfg
	if out.Points == 0 {
		out.Points = DefaultPoints
	}
	if out.Seed == 0 {
		out.Seed = 1
	}
	if out.Tolerances.RTol == 0 {
		out.Tolerances.RTol = DefaultRTol
	}
	if out.Tolerances.ATol == 0 {
		out.Tolerances.ATol = DefaultATol
	}
	return &out
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	return names
}
