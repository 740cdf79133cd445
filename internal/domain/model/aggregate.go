package model

// FolderStats is the per-folder breakdown derived from a snapshot.
type FolderStats struct {
	FolderID   string
	FolderName string
	VideoCount int
	TotalSize  int64
}

// Totals holds snapshot-wide counters.
type Totals struct {
	Videos       int
	Folders      int
	StorageBytes int64
}

// FolderBreakdown computes per-folder video counts and storage in folder order.
// Folders without videos are reported with zero values. Videos pointing at a
// folder that is not in the snapshot are left out of every folder's numbers.
func FolderBreakdown(s *Snapshot) []FolderStats {
	if s == nil {
		return nil
	}

	index := make(map[string]int, len(s.Folders))
	stats := make([]FolderStats, len(s.Folders))
	for i, f := range s.Folders {
		stats[i] = FolderStats{FolderID: f.ID, FolderName: f.Name}
		if _, dup := index[f.ID]; !dup {
			index[f.ID] = i
		}
	}

	for _, v := range s.Videos {
		i, ok := index[v.FolderID]
		if !ok {
			continue
		}
		stats[i].VideoCount++
		stats[i].TotalSize += v.SizeBytes()
	}

	return stats
}

// ComputeTotals counts every video in the snapshot, including dangling ones.
func ComputeTotals(s *Snapshot) Totals {
	if s == nil {
		return Totals{}
	}

	t := Totals{
		Videos:  len(s.Videos),
		Folders: len(s.Folders),
	}
	for _, v := range s.Videos {
		t.StorageBytes += v.SizeBytes()
	}
	return t
}
