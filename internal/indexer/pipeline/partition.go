package pipeline

import (
	"github.com/Adithya-Monish-Kumar-K/wordindex/internal/indexer/worker"
)

// Partition splits locations into at most workers contiguous slices of
// ceil(len/workers) documents each. The last slice may be shorter; slices
// that would be empty are not returned. Each slice's Start is its offset
// in locations, which makes Start+i a globally unique document id.
func Partition(locations []string, workers int) []worker.Slice {
	total := len(locations)
	if total == 0 || workers < 1 {
		return nil
	}
	per := (total + workers - 1) / workers
	slices := make([]worker.Slice, 0, workers)
	for w := 0; w < workers; w++ {
		start := w * per
		if start >= total {
			break
		}
		end := min(start+per, total)
		slices = append(slices, worker.Slice{
			Worker:    w,
			Start:     start,
			Locations: locations[start:end],
		})
	}
	return slices
}
