package domain

import "time"

// ExpiringSoonWindow is how far ahead of today a contract end still counts
// as expiring soon (inclusive).
const ExpiringSoonWindow = 7 * 24 * time.Hour

// ExpirySummary partitions a set of advertisements by contract-end proximity
// to a reference date. Expired and ExpiringSoon are disjoint for a fixed
// today: expired requires contract_end < today, expiring soon requires
// contract_end >= today.
type ExpirySummary struct {
	Expired      []Advertisement
	ExpiringSoon []Advertisement
	Total        int
}

// ClassifyExpiry buckets ads against today (compared at date granularity).
//   - expired:       contract_end < today
//   - expiring soon: today <= contract_end <= today+7d, both ends inclusive
//
// Ads ending later than the window fall in neither bucket but still count
// toward Total.
func ClassifyExpiry(ads []Advertisement, today time.Time) ExpirySummary {
	today = truncateToDate(today)
	cutoff := today.Add(ExpiringSoonWindow)

	out := ExpirySummary{Total: len(ads)}
	for _, ad := range ads {
		end := truncateToDate(ad.ContractEnd)
		switch {
		case end.Before(today):
			out.Expired = append(out.Expired, ad)
		case !end.After(cutoff):
			out.ExpiringSoon = append(out.ExpiringSoon, ad)
		}
	}
	return out
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
