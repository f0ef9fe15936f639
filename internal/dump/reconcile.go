package dump

import (
	"context"
	"fmt"
	"slices"

	"gorm.io/gorm"

	"github.com/usher2/u2dumpsync/internal/logger"
	"github.com/usher2/u2dumpsync/internal/store"
)

// Reconcile - bring the stored records in line with the register in one transaction.
func Reconcile(ctx context.Context, db *gorm.DB, reg *Register, epoch int64) (Stats, error) {
	var stats Stats

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error

		stats, err = reconcile(ctx, tx, reg, epoch)

		return err
	})
	if err != nil {
		return Stats{}, fmt.Errorf("%w: %w", ErrReconcile, err)
	}

	LogStats(stats)

	return stats, nil
}

// ReconcileTx - Reconcile inside the caller's transaction.
// New records are added, changed ones get a new version, missing ones are purged.
// Every row written carries epoch as its add or purge mark.
func ReconcileTx(ctx context.Context, tx *gorm.DB, reg *Register, epoch int64) (Stats, error) {
	stats, err := reconcile(ctx, tx, reg, epoch)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: %w", ErrReconcile, err)
	}

	return stats, nil
}

// LogStats - log the reconcile counters.
func LogStats(stats Stats) {
	logger.Info.Printf("Records: %d Added: %d Updated: %d Removed: %d\n",
		stats.Count, stats.AddCount, stats.UpdateCount, stats.RemoveCount)
}

func reconcile(ctx context.Context, tx *gorm.DB, reg *Register, epoch int64) (Stats, error) {
	var stats Stats

	active, err := store.ActiveItems(tx)
	if err != nil {
		return Stats{}, err
	}

	journal := make(map[int64]struct{}, len(reg.Contents))

	for _, cont := range reg.Contents {
		if err := ctx.Err(); err != nil {
			return Stats{}, err
		}

		journal[cont.ID] = struct{}{}
		stats.Count++

		prev, exists := active[cont.ID]

		switch {
		case !exists:
			if err := store.InsertItem(tx, newItem(cont, epoch)); err != nil {
				return Stats{}, err
			}

			stats.AddCount++
		case prev.HashRecord != cont.RecordHash:
			if err := store.PurgeItem(tx, prev.ID, epoch); err != nil {
				return Stats{}, err
			}

			if err := store.InsertItem(tx, newItem(cont, epoch)); err != nil {
				return Stats{}, err
			}

			stats.UpdateCount++
		}
	}

	removed := make([]int64, 0)

	for id := range active {
		if _, ok := journal[id]; !ok {
			removed = append(removed, id)
		}
	}

	slices.Sort(removed)

	for _, id := range removed {
		if err := store.PurgeItem(tx, active[id].ID, epoch); err != nil {
			return Stats{}, err
		}

		stats.RemoveCount++
	}

	return stats, nil
}

func newItem(cont *Content, epoch int64) *store.Item {
	item := &store.Item{
		ContentID:    cont.ID,
		IncludeTime:  cont.IncludeTime,
		UrgencyType:  cont.UrgencyType,
		EntryType:    cont.EntryType,
		BlockType:    cont.BlockType,
		HashRecord:   cont.RecordHash,
		DecisionDate: cont.Decision.Date,
		DecisionNum:  cont.Decision.Number,
		DecisionOrg:  cont.Decision.Org,
		Add:          epoch,
	}

	for _, a := range cont.IPs {
		item.IPs = append(item.IPs, store.IP{
			ContentID: cont.ID,
			IP:        a.IP,
			Mask:      a.Mask,
			Version:   a.Version,
			Add:       epoch,
		})
	}

	for _, d := range cont.Domains {
		item.Domains = append(item.Domains, store.Domain{ContentID: cont.ID, Domain: d, Add: epoch})
	}

	for _, u := range cont.URLs {
		item.URLs = append(item.URLs, store.URL{ContentID: cont.ID, URL: u, Add: epoch})
	}

	return item
}
