package storage

import (
	"encoding/json"
	"errors"
	"sort"

	"go.etcd.io/bbolt"

	"github.com/hakim/reconx/internal/models"
)

// ErrRunNotFound is returned when no run exists for an ID
var ErrRunNotFound = errors.New("run not found")

// SaveRun persists run metadata and indexes it under every target
func (s *Store) SaveRun(meta *models.RunMeta) error {
	if meta == nil || meta.ID == "" {
		return errors.New("run metadata requires an ID")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}

		runs := tx.Bucket([]byte(bucketRuns))
		if err := runs.Put([]byte(meta.ID), data); err != nil {
			return err
		}

		// target -> []run_id
		index := tx.Bucket([]byte(bucketRunIndex))
		for _, target := range meta.Targets {
			key := []byte(target)

			var ids []string
			if existing := index.Get(key); existing != nil {
				if err := json.Unmarshal(existing, &ids); err != nil {
					return err
				}
			}
			if containsString(ids, meta.ID) {
				continue
			}
			ids = append(ids, meta.ID)

			indexData, err := json.Marshal(ids)
			if err != nil {
				return err
			}
			if err := index.Put(key, indexData); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetRun retrieves run metadata by ID
func (s *Store) GetRun(id string) (*models.RunMeta, error) {
	var meta *models.RunMeta

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketRuns)).Get([]byte(id))
		if data == nil {
			return ErrRunNotFound
		}
		meta = &models.RunMeta{}
		return json.Unmarshal(data, meta)
	})
	if err != nil {
		return nil, err
	}

	return meta, nil
}

// ListRuns returns runs that included target, newest first. An empty target
// lists every run.
func (s *Store) ListRuns(target string) ([]*models.RunMeta, error) {
	var runs []*models.RunMeta

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketRuns))

		if target == "" {
			return bucket.ForEach(func(_, v []byte) error {
				var meta models.RunMeta
				if err := json.Unmarshal(v, &meta); err != nil {
					return err
				}
				runs = append(runs, &meta)
				return nil
			})
		}

		data := tx.Bucket([]byte(bucketRunIndex)).Get([]byte(target))
		if data == nil {
			return nil
		}
		var ids []string
		if err := json.Unmarshal(data, &ids); err != nil {
			return err
		}
		for _, id := range ids {
			runData := bucket.Get([]byte(id))
			if runData == nil {
				continue
			}
			var meta models.RunMeta
			if err := json.Unmarshal(runData, &meta); err != nil {
				return err
			}
			runs = append(runs, &meta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	return runs, nil
}

// LatestRun returns the most recent run for target, or nil when none exist
func (s *Store) LatestRun(target string) (*models.RunMeta, error) {
	runs, err := s.ListRuns(target)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return runs[0], nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
