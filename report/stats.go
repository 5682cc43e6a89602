package report

import (
	"sort"
	"time"

	"github.com/kteam-analyzer/backend/patchset"
)

// NameCount pairs a sender with an occurrence count.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Stats aggregates review behavior over a collection of patch sets.
type Stats struct {
	TotalPatchSets       int       `json:"total_patch_sets"`
	TotalApplied         int       `json:"total_applied"`
	MedianAgeDays        float64   `json:"median_age_days"`
	MedianSeriesSize     float64   `json:"median_series_size"`
	TopSubmitter         NameCount `json:"top_submitter"`
	TopAcker             NameCount `json:"top_acker"`
	TopNaker             NameCount `json:"top_naker"`
	TopApplier           NameCount `json:"top_applier"`
	MedianDaysToFirstAck float64   `json:"median_days_to_first_ack"`
	MedianDaysToFirstNak float64   `json:"median_days_to_first_nak"`
	MedianDaysToApplied  float64   `json:"median_days_to_applied"`
}

// Generate computes stats over the given patch sets. Sets without an epoch
// patch carry no review signal and are skipped. Returns nil when nothing
// qualifies.
func Generate(patchSets []*patchset.PatchSet, now time.Time) *Stats {
	var valid []*patchset.PatchSet
	for _, ps := range patchSets {
		if ps.EpochPatch() != nil {
			valid = append(valid, ps)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	var ages, sizes []float64
	var daysToAck, daysToNak, daysToApplied []float64
	submitters := make(map[string]int)
	ackers := make(map[string]int)
	nakers := make(map[string]int)
	appliers := make(map[string]int)
	totalApplied := 0

	for _, ps := range valid {
		epoch := ps.EpochPatch()
		ages = append(ages, now.Sub(epoch.Timestamp).Hours()/24)
		sizes = append(sizes, float64(ps.Len()))
		submitters[epoch.Sender]++

		if acks := ps.Acks(); len(acks) > 0 {
			daysToAck = append(daysToAck, acks[0].Timestamp.Sub(epoch.Timestamp).Hours()/24)
			for _, a := range acks {
				ackers[a.Sender]++
			}
		}
		if naks := ps.Naks(); len(naks) > 0 {
			daysToNak = append(daysToNak, naks[0].Timestamp.Sub(epoch.Timestamp).Hours()/24)
			for _, n := range naks {
				nakers[n.Sender]++
			}
		}
		if applieds := ps.Applieds(); len(applieds) > 0 {
			totalApplied++
			daysToApplied = append(daysToApplied, applieds[0].Timestamp.Sub(epoch.Timestamp).Hours()/24)
			for _, a := range applieds {
				appliers[a.Sender]++
			}
		}
	}

	return &Stats{
		TotalPatchSets:       len(valid),
		TotalApplied:         totalApplied,
		MedianAgeDays:        median(ages),
		MedianSeriesSize:     median(sizes),
		TopSubmitter:         topSender(submitters),
		TopAcker:             topSender(ackers),
		TopNaker:             topSender(nakers),
		TopApplier:           topSender(appliers),
		MedianDaysToFirstAck: median(daysToAck),
		MedianDaysToFirstNak: median(daysToNak),
		MedianDaysToApplied:  median(daysToApplied),
	}
}

// median returns the middle value, or 0 for an empty series.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// topSender returns the most frequent sender; ties break alphabetically.
func topSender(counts map[string]int) NameCount {
	var top NameCount
	for name, count := range counts {
		if count > top.Count || (count == top.Count && (top.Name == "" || name < top.Name)) {
			top = NameCount{Name: name, Count: count}
		}
	}
	return top
}
