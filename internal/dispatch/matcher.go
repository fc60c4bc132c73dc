package dispatch

import (
	"sort"

	"campusDeliveryBot/internal/geo"
	"campusDeliveryBot/models"
)

// campusPriority maps a student's campus to the order in which campuses are
// tried during the locality fallback.
var campusPriority = map[string][]string{
	"6kilo": {"6kilo", "FBE", "5kilo", "4kilo"},
	"FBE":   {"FBE", "6kilo", "5kilo", "4kilo"},
	"5kilo": {"5kilo", "4kilo", "6kilo", "FBE"},
	"4kilo": {"4kilo", "5kilo", "6kilo", "FBE"},
}

// CampusPriorityOrder returns the campus search order for a student's campus.
// Unknown campuses get an empty slice; callers fall back to the full pool.
func CampusPriorityOrder(campus string) []string {
	return campusPriority[campus]
}

// SelectCandidate picks the best courier for the order out of the already
// eligibility-filtered candidates. Pure: no side effects, no I/O.
//
// Candidates are first ordered by reliability score descending (id ascending
// as the tie-break) so every later selection rule is deterministic. Then:
//   - with dropoff coordinates, the candidate with a known location nearest to
//     the dropoff wins;
//   - otherwise the student's campus-priority chain is walked, first campus
//     match wins;
//   - if neither rule produces a match, the first candidate in ranked order.
//
// Returns nil when candidates is empty: assignment is deferred, not an error.
func SelectCandidate(order *models.Order, student *models.User, candidates []models.Courier) *models.Courier {
	if len(candidates) == 0 {
		return nil
	}

	ranked := make([]models.Courier, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := ranked[i].ReliabilityScore(), ranked[j].ReliabilityScore()
		if si != sj {
			return si > sj
		}
		return ranked[i].ID < ranked[j].ID
	})

	if order.HasDropLocation() {
		var chosen *models.Courier
		best := 0.0
		for i := range ranked {
			c := &ranked[i]
			if !c.HasLocation() {
				continue
			}
			d := geo.HaversineMeters(*c.LastLat, *c.LastLon, *order.DropLat, *order.DropLon)
			if chosen == nil || d < best {
				best = d
				chosen = c
			}
		}
		if chosen != nil {
			return chosen
		}
		// No candidate has a known location; take the top-ranked one.
		return &ranked[0]
	}

	if student != nil {
		for _, campus := range CampusPriorityOrder(student.Campus) {
			for i := range ranked {
				if ranked[i].Campus == campus {
					return &ranked[i]
				}
			}
		}
	}
	return &ranked[0]
}
