// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package export copies the completed jobs of a batch run into a SQLite database.
// Writing the same run again updates its rows, so a resumed run can be exported after every stop.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/matt-FFFFFF/chatbatch/internal/batch"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrExport is returned when the database cannot be written.
var ErrExport = errors.New("export failed")

const insertBatchSize = 100

// Run is one batch run.
type Run struct {
	ID         string `gorm:"primaryKey;size:36"`
	Checkpoint string
	Mode       string
	Strategy   string
	Total      int
	Completed  int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName implements gorm's tabler interface.
func (Run) TableName() string {
	return "chatbatch_runs"
}

// Record is one completed job.
type Record struct {
	RunID      string `gorm:"primaryKey;size:36"`
	JobIndex   int    `gorm:"primaryKey;autoIncrement:false"`
	Prompt     string
	Text       string
	Structured string
	SessionID  string
	Model      string
	UpdatedAt  time.Time
}

// TableName implements gorm's tabler interface.
func (Record) TableName() string {
	return "chatbatch_records"
}

// Open opens the SQLite database at path and creates the tables.
func Open(ctx context.Context, path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Join(ErrExport, err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&Run{}, &Record{}); err != nil {
		return nil, errors.Join(ErrExport, err)
	}

	return db, nil
}

// Write upserts the run and every job below the cursor.
func Write(ctx context.Context, db *gorm.DB, st *batch.State) error {
	run := Run{
		ID:         st.ID.String(),
		Checkpoint: st.Checkpoint,
		Mode:       st.Config.Mode.String(),
		Strategy:   st.Config.Strategy.String(),
		Total:      len(st.Inputs),
		Completed:  st.Cursor,
		CreatedAt:  st.CreatedAt,
	}

	records := make([]Record, 0, st.Cursor)

	for i, o := range st.Outputs[:st.Cursor] {
		prompt, err := json.Marshal(st.Inputs[i])
		if err != nil {
			return errors.Join(ErrExport, err)
		}

		r := Record{
			RunID:     run.ID,
			JobIndex:  i,
			Prompt:    string(prompt),
			Text:      o.Text,
			SessionID: o.Session.ID,
			Model:     o.Session.Model,
		}

		if o.Structured != nil {
			b, err := json.Marshal(o.Structured)
			if err != nil {
				return errors.Join(ErrExport, err)
			}

			r.Structured = string(b)
		}

		records = append(records, r)
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&run).Error; err != nil {
			return fmt.Errorf("upsert run: %w", err)
		}

		if len(records) == 0 {
			return nil
		}

		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(&records, insertBatchSize).Error; err != nil {
			return fmt.Errorf("upsert records: %w", err)
		}

		return nil
	})
	if err != nil {
		return errors.Join(ErrExport, err)
	}

	return nil
}

// Records returns the exported jobs of a run in order.
func Records(ctx context.Context, db *gorm.DB, runID string) ([]Record, error) {
	var rs []Record

	if err := db.WithContext(ctx).Where("run_id = ?", runID).Order("job_index").Find(&rs).Error; err != nil {
		return nil, errors.Join(ErrExport, err)
	}

	return rs, nil
}

// SQLite writes st to the database file at path.
func SQLite(ctx context.Context, path string, st *batch.State) error {
	db, err := Open(ctx, path)
	if err != nil {
		return err
	}

	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close() //nolint:errcheck
	}

	return Write(ctx, db, st)
}
