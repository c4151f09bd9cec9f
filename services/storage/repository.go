// Copyright (C) 2026 Curon Labs (dev@curonhq.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/curonhq/curon/services/server/datatypes"
)

// ErrNotFound indicates a record does not exist or is not owned by the
// calling user. Read and delete flows typically swallow it; update
// flows surface it.
var ErrNotFound = errors.New("record not found")

// Store is the Badger-backed repository. Safe for concurrent use; each
// exported mutation runs in a single Badger transaction.
type Store struct {
	db *badger.DB
}

// NewStore wraps an opened Badger database.
func NewStore(db *badger.DB) *Store {
	return &Store{db: db}
}

// Ping verifies the underlying database is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.View(func(txn *badger.Txn) error { return nil })
}

// =============================================================================
// Keys and codecs
// =============================================================================

func userKey(id string) []byte    { return []byte("user/" + id) }
func intentKey(id string) []byte  { return []byte("intent/" + id) }
func taskKey(id string) []byte    { return []byte("task/" + id) }
func thoughtKey(id string) []byte { return []byte("thought/" + id) }

// chatKey orders entries by creation time: the zero-padded nanosecond
// timestamp sorts lexicographically, the uuid suffix breaks ties.
func chatKey(intentID string, createdNano int64, id string) []byte {
	return []byte(fmt.Sprintf("chat/%s/%020d/%s", intentID, createdNano, id))
}

func chatPrefix(intentID string) []byte {
	return []byte("chat/" + intentID + "/")
}

func putJSON(txn *badger.Txn, key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", key, err)
	}
	return txn.Set(key, raw)
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get record %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func nowMillis() int64 { return time.Now().UnixMilli() }

// =============================================================================
// Intents
// =============================================================================

// CreateIntent persists a new intent owned by userID. Status defaults
// to active when empty.
func (s *Store) CreateIntent(ctx context.Context, userID, title, status string, question *string, thoughtID string) (*Intent, error) {
	intent, _, err := s.CreateIntentWithTasks(ctx, userID, title, status, question, thoughtID, nil)
	return intent, err
}

// CreateIntentWithTasks persists a new intent and its seed tasks in a
// single transaction.
func (s *Store) CreateIntentWithTasks(ctx context.Context, userID, title, status string, question *string, thoughtID string, seeds []TaskSeed) (*Intent, []*Task, error) {
	if userID == "" {
		return nil, nil, errors.New("userID must not be empty")
	}
	if status == "" {
		status = StatusActive
	}
	now := nowMillis()
	intent := &Intent{
		ID:              uuid.NewString(),
		UserID:          userID,
		Title:           title,
		Status:          status,
		PendingQuestion: question,
		ThoughtID:       thoughtID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	tasks := make([]*Task, 0, len(seeds))
	for _, seed := range seeds {
		tasks = append(tasks, &Task{
			ID:        uuid.NewString(),
			IntentID:  intent.ID,
			Title:     seed.Title,
			Done:      seed.Done,
			Priority:  seed.Priority,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := putJSON(txn, intentKey(intent.ID), intent); err != nil {
			return err
		}
		for _, t := range tasks {
			if err := putJSON(txn, taskKey(t.ID), t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return intent, tasks, nil
}

// GetIntent loads an intent by id regardless of owner.
func (s *Store) GetIntent(ctx context.Context, intentID string) (*Intent, error) {
	var intent Intent
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, intentKey(intentID), &intent)
	})
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// GetOwnedIntent loads an intent and enforces ownership. A foreign or
// missing intent is ErrNotFound either way, so callers cannot
// distinguish (and leak) other tenants' ids.
func (s *Store) GetOwnedIntent(ctx context.Context, intentID, userID string) (*Intent, error) {
	intent, err := s.GetIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if intent.UserID != userID {
		return nil, ErrNotFound
	}
	return intent, nil
}

// ListIntents returns all intents owned by userID whose status is in
// statuses (all statuses when empty), ordered by creation time.
func (s *Store) ListIntents(ctx context.Context, userID string, statuses []string) ([]*Intent, error) {
	wanted := make(map[string]bool, len(statuses))
	for _, st := range statuses {
		wanted[st] = true
	}
	var intents []*Intent
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("intent/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var intent Intent
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &intent)
			})
			if err != nil {
				return err
			}
			if intent.UserID != userID {
				continue
			}
			if len(wanted) > 0 && !wanted[intent.Status] {
				continue
			}
			clone := intent
			intents = append(intents, &clone)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(intents, func(i, j int) bool {
		if intents[i].CreatedAt != intents[j].CreatedAt {
			return intents[i].CreatedAt < intents[j].CreatedAt
		}
		return intents[i].ID < intents[j].ID
	})
	return intents, nil
}

// UpdateIntent applies a partial mutation to an owned intent.
func (s *Store) UpdateIntent(ctx context.Context, intentID, userID string, upd IntentUpdate) (*Intent, error) {
	intent, _, err := s.UpdateIntentWithTasks(ctx, intentID, userID, upd, nil)
	return intent, err
}

// UpdateIntentWithTasks applies an intent mutation and a set of task
// upserts in one transaction and returns the updated intent plus its
// full task list. A task upsert whose id does not resolve to a task
// under this intent creates a new task instead.
func (s *Store) UpdateIntentWithTasks(ctx context.Context, intentID, userID string, upd IntentUpdate, upserts []TaskUpsert) (*Intent, []*Task, error) {
	var intent Intent
	var tasks []*Task
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := getJSON(txn, intentKey(intentID), &intent); err != nil {
			return err
		}
		if intent.UserID != userID {
			return ErrNotFound
		}
		now := nowMillis()
		if upd.Title != nil && *upd.Title != "" {
			intent.Title = *upd.Title
		}
		if upd.Status != nil {
			intent.Status = *upd.Status
		}
		if upd.Question != nil {
			intent.PendingQuestion = upd.Question
		} else if upd.ClearQuestion {
			intent.PendingQuestion = nil
		}
		intent.UpdatedAt = now
		if err := putJSON(txn, intentKey(intentID), &intent); err != nil {
			return err
		}

		for _, up := range upserts {
			applied := false
			if up.ID != nil && *up.ID != "" {
				var existing Task
				err := getJSON(txn, taskKey(*up.ID), &existing)
				if err == nil && existing.IntentID == intentID {
					existing.Title = up.Title
					existing.Done = up.Done
					existing.Priority = up.Priority
					existing.UpdatedAt = now
					if err := putJSON(txn, taskKey(existing.ID), &existing); err != nil {
						return err
					}
					applied = true
				} else if err != nil && !errors.Is(err, ErrNotFound) {
					return err
				}
			}
			if !applied {
				created := Task{
					ID:        uuid.NewString(),
					IntentID:  intentID,
					Title:     up.Title,
					Done:      up.Done,
					Priority:  up.Priority,
					CreatedAt: now,
					UpdatedAt: now,
				}
				if err := putJSON(txn, taskKey(created.ID), &created); err != nil {
					return err
				}
			}
		}

		var err error
		tasks, err = listTasksTxn(txn, intentID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return &intent, tasks, nil
}

// DeleteIntent removes an owned intent together with its tasks and
// chat transcript in one transaction.
func (s *Store) DeleteIntent(ctx context.Context, intentID, userID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var intent Intent
		if err := getJSON(txn, intentKey(intentID), &intent); err != nil {
			return err
		}
		if intent.UserID != userID {
			return ErrNotFound
		}
		if err := deleteTasksTxn(txn, intentID); err != nil {
			return err
		}
		if err := deleteByPrefixTxn(txn, chatPrefix(intentID)); err != nil {
			return err
		}
		return txn.Delete(intentKey(intentID))
	})
}

// =============================================================================
// Proposals
// =============================================================================

// SetProposal stores plan as the pending proposal on an owned intent,
// replacing any previous proposal, and returns the stored record with
// its generated id.
func (s *Store) SetProposal(ctx context.Context, intentID, userID string, plan datatypes.Plan) (*Proposal, error) {
	proposal := &Proposal{
		ID:        uuid.NewString(),
		Plan:      plan,
		CreatedAt: nowMillis(),
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		var intent Intent
		if err := getJSON(txn, intentKey(intentID), &intent); err != nil {
			return err
		}
		if intent.UserID != userID {
			return ErrNotFound
		}
		intent.Proposal = proposal
		intent.UpdatedAt = nowMillis()
		return putJSON(txn, intentKey(intentID), &intent)
	})
	if err != nil {
		return nil, err
	}
	return proposal, nil
}

// ClearProposal removes the pending proposal from an intent if and
// only if the stored proposal still carries proposalID. Returns true
// when this call performed the clear. A deleted intent reads as not
// cleared: whoever removed it resolved the proposal with it. The
// compare-and-clear makes confirmation at-most-once under concurrent
// turns: Badger aborts the losing transaction on conflict, and a
// retry observes the proposal gone.
func (s *Store) ClearProposal(ctx context.Context, intentID, proposalID string) (bool, error) {
	// Badger detects write-write conflicts between concurrent
	// transactions; the loser retries and then observes the proposal
	// already cleared, so exactly one caller wins.
	for attempt := 0; attempt < 3; attempt++ {
		cleared := false
		err := s.db.Update(func(txn *badger.Txn) error {
			var intent Intent
			if err := getJSON(txn, intentKey(intentID), &intent); err != nil {
				return err
			}
			if intent.Proposal == nil || intent.Proposal.ID != proposalID {
				return nil
			}
			intent.Proposal = nil
			intent.UpdatedAt = nowMillis()
			if err := putJSON(txn, intentKey(intentID), &intent); err != nil {
				return err
			}
			cleared = true
			return nil
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return cleared, nil
	}
	return false, badger.ErrConflict
}

// =============================================================================
// Tasks
// =============================================================================

// CreateTask adds a task under an intent owned by userID.
func (s *Store) CreateTask(ctx context.Context, userID, intentID string, seed TaskSeed) (*Task, error) {
	now := nowMillis()
	task := &Task{
		ID:        uuid.NewString(),
		IntentID:  intentID,
		Title:     seed.Title,
		Done:      seed.Done,
		Priority:  seed.Priority,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		var intent Intent
		if err := getJSON(txn, intentKey(intentID), &intent); err != nil {
			return err
		}
		if intent.UserID != userID {
			return ErrNotFound
		}
		return putJSON(txn, taskKey(task.ID), task)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// GetTask loads a task by id.
func (s *Store) GetTask(ctx context.Context, taskID string) (*Task, error) {
	var task Task
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, taskKey(taskID), &task)
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask applies a partial mutation to a task whose owning intent
// belongs to userID.
func (s *Store) UpdateTask(ctx context.Context, userID, taskID string, patch TaskPatch) (*Task, error) {
	var task Task
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := getJSON(txn, taskKey(taskID), &task); err != nil {
			return err
		}
		var intent Intent
		if err := getJSON(txn, intentKey(task.IntentID), &intent); err != nil {
			return err
		}
		if intent.UserID != userID {
			return ErrNotFound
		}
		if patch.Title != nil && *patch.Title != "" {
			task.Title = *patch.Title
		}
		if patch.Done != nil {
			task.Done = *patch.Done
		}
		if patch.Priority != nil {
			task.Priority = patch.Priority
		}
		task.UpdatedAt = nowMillis()
		return putJSON(txn, taskKey(taskID), &task)
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask removes a task whose owning intent belongs to userID.
func (s *Store) DeleteTask(ctx context.Context, userID, taskID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var task Task
		if err := getJSON(txn, taskKey(taskID), &task); err != nil {
			return err
		}
		var intent Intent
		if err := getJSON(txn, intentKey(task.IntentID), &intent); err != nil {
			return err
		}
		if intent.UserID != userID {
			return ErrNotFound
		}
		return txn.Delete(taskKey(taskID))
	})
}

// DeleteTasksByIntent removes every task under an intent.
func (s *Store) DeleteTasksByIntent(ctx context.Context, intentID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return deleteTasksTxn(txn, intentID)
	})
}

// ListTasks returns the tasks under an intent ordered by creation time.
func (s *Store) ListTasks(ctx context.Context, intentID string) ([]*Task, error) {
	var tasks []*Task
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		tasks, err = listTasksTxn(txn, intentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func listTasksTxn(txn *badger.Txn, intentID string) ([]*Task, error) {
	var tasks []*Task
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	prefix := []byte("task/")
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var task Task
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &task)
		})
		if err != nil {
			return nil, err
		}
		if task.IntentID != intentID {
			continue
		}
		clone := task
		tasks = append(tasks, &clone)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt != tasks[j].CreatedAt {
			return tasks[i].CreatedAt < tasks[j].CreatedAt
		}
		return tasks[i].ID < tasks[j].ID
	})
	return tasks, nil
}

func deleteTasksTxn(txn *badger.Txn, intentID string) error {
	tasks, err := listTasksTxn(txn, intentID)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if err := txn.Delete(taskKey(t.ID)); err != nil {
			return err
		}
	}
	return nil
}

func deleteByPrefixTxn(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()
	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Chat transcript
// =============================================================================

// AppendChatEntry adds one line to an intent's transcript.
func (s *Store) AppendChatEntry(ctx context.Context, intentID, role, content string) (*ChatEntry, error) {
	nano := time.Now().UnixNano()
	entry := &ChatEntry{
		ID:        uuid.NewString(),
		IntentID:  intentID,
		Role:      role,
		Content:   content,
		CreatedAt: nano / int64(time.Millisecond),
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return putJSON(txn, chatKey(intentID, nano, entry.ID), entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListChatEntries returns an intent's transcript in creation order.
func (s *Store) ListChatEntries(ctx context.Context, intentID string) ([]*ChatEntry, error) {
	var entries []*ChatEntry
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := chatPrefix(intentID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			// Guard against an intent id that is a prefix of another.
			key := string(it.Item().Key())
			rest := strings.TrimPrefix(key, string(prefix))
			if strings.Count(rest, "/") != 1 {
				continue
			}
			var entry ChatEntry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				return err
			}
			clone := entry
			entries = append(entries, &clone)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
