package stations

// ComputeWeights returns the per-station weight used for the
// population-weighted national aggregate, keyed by station ID.
//
// Two-level scheme: each canton's share is its population over the
// total population of all represented cantons (each canton counted
// once regardless of how many stations it hosts); within a canton a
// station's share is its locality population over the sum of locality
// populations in that canton. Cantons whose stations carry no
// locality figure hold a single station, which takes the full canton
// share. Weights sum to 1 over the registry.
func ComputeWeights() map[string]float64 {
	cantonPop := make(map[string]int)
	totalPop := 0
	for _, s := range Registry {
		if _, seen := cantonPop[s.Canton]; !seen {
			cantonPop[s.Canton] = s.CantonPop
			totalPop += s.CantonPop
		}
	}

	localTotal := make(map[string]int)
	for _, s := range Registry {
		localTotal[s.Canton] += s.Population
	}

	weights := make(map[string]float64, len(Registry))
	for _, s := range Registry {
		cantonShare := float64(cantonPop[s.Canton]) / float64(totalPop)
		stationShare := 1.0
		if localTotal[s.Canton] > 0 {
			stationShare = float64(s.Population) / float64(localTotal[s.Canton])
		}
		weights[s.ID] = stationShare * cantonShare
	}
	return weights
}
