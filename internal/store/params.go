package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Parameter names.
const (
	ParamLastDumpDate         = "lastDumpDate"
	ParamLastDumpDateUrgently = "lastDumpDateUrgently"
	ParamLastAction           = "lastAction"
	ParamLastResult           = "lastResult"
	ParamLastCode             = "lastCode"
	ParamDumpFormatVersion    = "dumpFormatVersion"
	ParamWebServiceVersion    = "webServiceVersion"
	ParamDocVersion           = "docVersion"
)

// DefaultParams - values seeded on the first run.
var DefaultParams = map[string]string{
	ParamLastDumpDate:         "1325376000",
	ParamLastDumpDateUrgently: "1325376000",
	ParamLastAction:           "getLastDumpDate",
	ParamLastResult:           "default",
	ParamLastCode:             "default",
	ParamDumpFormatVersion:    "2.4",
	ParamWebServiceVersion:    "3",
	ParamDocVersion:           "4",
}

// SeedDefaults - insert missing parameters, existing values are kept.
func (s *Store) SeedDefaults(ctx context.Context) error {
	names := make([]string, 0, len(DefaultParams))
	for name := range DefaultParams {
		names = append(names, name)
	}

	sort.Strings(names)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range names {
			err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&Param{Name: name, Value: DefaultParams[name]}).Error
			if err != nil {
				return fmt.Errorf("seed %s: %w", name, err)
			}
		}

		return nil
	})
}

// Get - parameter value, ErrUnknownParam when it was never seeded.
func (s *Store) Get(ctx context.Context, name string) (string, error) {
	var p Param

	err := s.db.WithContext(ctx).Where("name = ?", name).Take(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: %s", ErrUnknownParam, name)
		}

		return "", fmt.Errorf("get %s: %w", name, err)
	}

	return p.Value, nil
}

// GetInt - parameter as an integer.
func (s *Store) GetInt(ctx context.Context, name string) (int64, error) {
	v, err := s.Get(ctx, name)
	if err != nil {
		return 0, err
	}

	x, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parameter %s: %w", name, err)
	}

	return x, nil
}

// Set - store the parameter value.
func (s *Store) Set(ctx context.Context, name, value string) error {
	return SetParam(s.db.WithContext(ctx), name, value)
}

// SetParam - store the parameter value within tx.
func SetParam(tx *gorm.DB, name, value string) error {
	if err := upsertParam(tx, name, value); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}

	return nil
}

// Params - every parameter.
func (s *Store) Params(ctx context.Context) (map[string]string, error) {
	var rows []Param

	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}

	m := make(map[string]string, len(rows))
	for _, p := range rows {
		m[p.Name] = p.Value
	}

	return m, nil
}
