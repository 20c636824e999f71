package dedupe

import (
	"sort"
	"strings"

	"github.com/shelfsync/shelfsync/pkg/catalog"
)

// Group is one set of catalog records sharing a content hash
type Group struct {
	ContentHash string                `json:"content_hash"`
	Records     []*catalog.FileRecord `json:"records"`
}

// Size returns the byte size of one copy in the group
func (g *Group) Size() int64 {
	if len(g.Records) == 0 {
		return 0
	}
	return g.Records[0].Size
}

// Wasted returns the bytes consumed by the redundant copies
func (g *Group) Wasted() int64 {
	if len(g.Records) < 2 {
		return 0
	}
	var total int64
	for _, rec := range g.Records[1:] {
		total += rec.Size
	}
	return total
}

// Report lists every duplicated content hash under prefix, ordered by
// hash for stable output. Groups with a single record are omitted.
func Report(store catalog.Store, prefix string) ([]Group, error) {
	records, err := store.ListPrefix(prefix)
	if err != nil {
		return nil, err
	}
	byHash := make(map[string][]*catalog.FileRecord)
	for _, rec := range records {
		byHash[rec.ContentHash] = append(byHash[rec.ContentHash], rec)
	}

	var groups []Group
	for hash, recs := range byHash {
		if len(recs) < 2 {
			continue
		}
		groups = append(groups, Group{ContentHash: hash, Records: recs})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].ContentHash < groups[j].ContentHash
	})
	return groups, nil
}

// SpaceSavings totals the bytes freed by reducing every group to one
// copy. keepLocation biases which copy survives: the first record whose
// path contains it (case-insensitive) is kept, otherwise the first
// record of the group.
func SpaceSavings(groups []Group, keepLocation string) int64 {
	var total int64
	for _, group := range groups {
		keep := group.Records[0]
		if keepLocation != "" {
			needle := strings.ToLower(keepLocation)
			for _, rec := range group.Records {
				if strings.Contains(strings.ToLower(rec.Path), needle) {
					keep = rec
					break
				}
			}
		}
		for _, rec := range group.Records {
			if rec != keep {
				total += rec.Size
			}
		}
	}
	return total
}
