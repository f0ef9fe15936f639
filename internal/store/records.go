package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

const insertBatchSize = 500

// ActiveItem - stored active record as reconciliation sees it.
type ActiveItem struct {
	ID         uint64
	ContentID  int64
	HashRecord string
}

// ActiveItems - active records by content id.
func ActiveItems(tx *gorm.DB) (map[int64]ActiveItem, error) {
	var rows []ActiveItem

	err := tx.Model(&Item{}).
		Select("id", "content_id", "hash_record").
		Where("purge IS NULL").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("active items: %w", err)
	}

	m := make(map[int64]ActiveItem, len(rows))
	for _, row := range rows {
		m[row.ContentID] = row
	}

	return m, nil
}

// InsertItem - new record version together with its children.
func InsertItem(tx *gorm.DB, item *Item) error {
	if err := tx.Create(item).Error; err != nil {
		return fmt.Errorf("insert item %d: %w", item.ContentID, err)
	}

	return nil
}

// PurgeItem - close the record and every still active child with the same epoch.
func PurgeItem(tx *gorm.DB, id uint64, epoch int64) error {
	if err := tx.Model(&Item{}).
		Where("id = ? AND purge IS NULL", id).
		Update("purge", epoch).Error; err != nil {
		return fmt.Errorf("purge item %d: %w", id, err)
	}

	for _, child := range []any{&IP{}, &Domain{}, &URL{}} {
		if err := tx.Model(child).
			Where("item_id = ? AND purge IS NULL", id).
			Update("purge", epoch).Error; err != nil {
			return fmt.Errorf("purge children of %d: %w", id, err)
		}
	}

	return nil
}

// EachActive - active records with their active children, batch by batch.
func (s *Store) EachActive(ctx context.Context, batch int, fn func([]Item) error) error {
	var items []Item

	res := s.db.WithContext(ctx).
		Preload("IPs", "purge IS NULL").
		Preload("Domains", "purge IS NULL").
		Preload("URLs", "purge IS NULL").
		Where("purge IS NULL").
		FindInBatches(&items, batch, func(tx *gorm.DB, _ int) error {
			return fn(items)
		})
	if res.Error != nil {
		return fmt.Errorf("each active: %w", res.Error)
	}

	return nil
}

// ActiveDomains - distinct domains of active records.
func (s *Store) ActiveDomains(ctx context.Context) ([]string, error) {
	var domains []string

	err := s.db.WithContext(ctx).Model(&Domain{}).
		Where("purge IS NULL").
		Distinct().
		Order("domain").
		Pluck("domain", &domains).Error
	if err != nil {
		return nil, fmt.Errorf("active domains: %w", err)
	}

	return domains, nil
}

// ActiveResolved - resolver rows that are still active.
func ActiveResolved(tx *gorm.DB) ([]DNSResolver, error) {
	var rows []DNSResolver

	if err := tx.Where("purge IS NULL").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("active resolved: %w", err)
	}

	return rows, nil
}

// PurgeResolved - close resolver rows.
func PurgeResolved(tx *gorm.DB, ids []uint64, epoch int64) error {
	if len(ids) == 0 {
		return nil
	}

	err := tx.Model(&DNSResolver{}).
		Where("id IN ? AND purge IS NULL", ids).
		Update("purge", epoch).Error
	if err != nil {
		return fmt.Errorf("purge resolved: %w", err)
	}

	return nil
}

// InsertResolved - new resolver rows.
func InsertResolved(tx *gorm.DB, rows []DNSResolver) error {
	if len(rows) == 0 {
		return nil
	}

	if err := tx.CreateInBatches(rows, insertBatchSize).Error; err != nil {
		return fmt.Errorf("insert resolved: %w", err)
	}

	return nil
}

// CountActive - number of active records.
func (s *Store) CountActive(ctx context.Context) (int64, error) {
	var n int64

	if err := s.db.WithContext(ctx).Model(&Item{}).Where("purge IS NULL").Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count active: %w", err)
	}

	return n, nil
}
