package finance

import (
	"time"

	"finboard/internal/core"
)

// HistoryLimit is the number of monthly net-worth entries kept.
const HistoryLimit = 12

// NetWorth is total asset value minus total liability value.
func NetWorth(assets []core.Asset, liabilities []core.Liability) core.Money {
	var total core.Money
	for _, a := range assets {
		total = total.Add(a.Value)
	}
	for _, l := range liabilities {
		total = total.Sub(l.Value)
	}
	return total
}

// RecordNetWorth stores value under the month of now. The current month's
// entry is overwritten or appended, the history is re-sorted and trimmed to
// the newest HistoryLimit months. When nothing changes the original slice
// is returned with changed=false so callers can skip the state update.
func RecordNetWorth(history core.NetWorthHistory, value core.Money, now time.Time, loc *time.Location) (core.NetWorthHistory, bool) {
	key := PeriodOf(now, loc).Key()

	index := make(map[core.MonthKey]int, len(history)+1)
	next := make(core.NetWorthHistory, 0, len(history)+1)
	for _, e := range history {
		if i, dup := index[e.Month]; dup {
			next[i] = e
			continue
		}
		index[e.Month] = len(next)
		next = append(next, e)
	}

	if i, ok := index[key]; ok {
		next[i].Value = value
	} else {
		next = append(next, core.NetWorthEntry{Month: key, Value: value})
	}

	next = next.Sorted()
	if len(next) > HistoryLimit {
		next = next[len(next)-HistoryLimit:]
	}

	if next.Equal(history) {
		return history, false
	}
	return next, true
}

// SnapshotNetWorth applies RecordNetWorth to a snapshot's own assets and
// liabilities.
func SnapshotNetWorth(s core.Snapshot, now time.Time, loc *time.Location) (core.NetWorthHistory, bool) {
	return RecordNetWorth(s.NetWorthHistory, NetWorth(s.Assets, s.Liabilities), now, loc)
}
