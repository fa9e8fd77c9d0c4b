package entity

import (
	"fmt"
	"math/rand"
)

// StrategyFunc expands parameter names and their candidate values into the
// parameter set of each ensemble member.
type StrategyFunc func(names []string, values [][]string) ([]map[string]string, error)

// AllPermutations produces the cartesian product of all parameter values.
func AllPermutations(names []string, values [][]string) ([]map[string]string, error) {
	if len(names) == 0 {
		return nil, nil
	}

	perms := []map[string]string{{}}
	for i, name := range names {
		var next []map[string]string
		for _, perm := range perms {
			for _, v := range values[i] {
				p := make(map[string]string, len(perm)+1)
				for k, pv := range perm {
					p[k] = pv
				}
				p[name] = v
				next = append(next, p)
			}
		}
		perms = next
	}
	return perms, nil
}

// StepValues zips parameter values positionally: member i takes the i-th
// value of every parameter. All parameters must have the same length.
func StepValues(names []string, values [][]string) ([]map[string]string, error) {
	if len(names) == 0 {
		return nil, nil
	}

	length := len(values[0])
	for i, v := range values {
		if len(v) != length {
			return nil, fmt.Errorf("step strategy requires equal value counts: param %q has %d, expected %d",
				names[i], len(v), length)
		}
	}

	perms := make([]map[string]string, length)
	for i := 0; i < length; i++ {
		p := make(map[string]string, len(names))
		for j, name := range names {
			p[name] = values[j][i]
		}
		perms[i] = p
	}
	return perms, nil
}

// RandomPermutations samples each parameter's values without replacement.
// The member count is the smallest value list length, capped by n when n > 0.
func RandomPermutations(n int) StrategyFunc {
	return func(names []string, values [][]string) ([]map[string]string, error) {
		if len(names) == 0 {
			return nil, nil
		}

		count := len(values[0])
		for _, v := range values {
			if len(v) < count {
				count = len(v)
			}
		}
		if n > 0 && n < count {
			count = n
		}

		perms := make([]map[string]string, count)
		for i := range perms {
			perms[i] = make(map[string]string, len(names))
		}
		for j, name := range names {
			order := rand.Perm(len(values[j]))
			for i := 0; i < count; i++ {
				perms[i][name] = values[j][order[i]]
			}
		}
		return perms, nil
	}
}

// strategyByName resolves the built-in strategy names.
func strategyByName(name string, nModels int) (StrategyFunc, error) {
	switch name {
	case "", "all_perm":
		return AllPermutations, nil
	case "step":
		return StepValues, nil
	case "random":
		return RandomPermutations(nModels), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedStrategy, name)
	}
}
