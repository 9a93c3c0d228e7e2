package experiment

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// Objective reduces a beam result to a scalar for scans. Lower is better.
type Objective func(*Result) float64

var objectives = map[string]Objective{
	"px":             func(r *Result) float64 { return r.Polarisation.X },
	"py":             func(r *Result) float64 { return r.Polarisation.Y },
	"pz":             func(r *Result) float64 { return r.Polarisation.Z },
	"-px":            func(r *Result) float64 { return -r.Polarisation.X },
	"-py":            func(r *Result) float64 { return -r.Polarisation.Y },
	"-pz":            func(r *Result) float64 { return -r.Polarisation.Z },
	"depolarisation": func(r *Result) float64 { return 1 - r3.Norm(r.Polarisation) },
	"loss": func(r *Result) float64 {
		if r.Created == 0 {
			return 0
		}
		return 1 - float64(r.Live)/float64(r.Created)
	},
}

func GetObjective(name string) (Objective, error) {
	fn, ok := objectives[name]
	if !ok {
		return nil, fmt.Errorf("unknown objective: %s", name)
	}
	return fn, nil
}

func ListObjectives() []string {
	names := make([]string, 0, len(objectives))
	for name := range objectives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
