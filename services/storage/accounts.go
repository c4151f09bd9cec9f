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
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// User and thought CRUD. Thoughts are the durable log of utterances
// that arrived outside a focused conversation; users back the account
// endpoints.

// CreateUser persists a new user.
func (s *Store) CreateUser(ctx context.Context, name, email string) (*User, error) {
	now := nowMillis()
	user := &User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return putJSON(txn, userKey(user.ID), user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser loads a user by id.
func (s *Store) GetUser(ctx context.Context, userID string) (*User, error) {
	var user User
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userKey(userID), &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser applies a partial mutation to a user.
func (s *Store) UpdateUser(ctx context.Context, userID string, patch UserPatch) (*User, error) {
	var user User
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := getJSON(txn, userKey(userID), &user); err != nil {
			return err
		}
		if patch.Name != nil && *patch.Name != "" {
			user.Name = *patch.Name
		}
		if patch.Email != nil && *patch.Email != "" {
			user.Email = *patch.Email
		}
		user.UpdatedAt = nowMillis()
		return putJSON(txn, userKey(userID), &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes a user record. Owned intents are not cascaded;
// the caller decides what to do with orphaned data.
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(userID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete(userKey(userID))
	})
}

// ListUsers returns every user ordered by creation time.
func (s *Store) ListUsers(ctx context.Context) ([]*User, error) {
	var users []*User
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("user/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var user User
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &user)
			})
			if err != nil {
				return err
			}
			clone := user
			users = append(users, &clone)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt != users[j].CreatedAt {
			return users[i].CreatedAt < users[j].CreatedAt
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

// CreateThought persists an utterance as a freestanding note.
func (s *Store) CreateThought(ctx context.Context, userID, content, topic, source string) (*Thought, error) {
	now := nowMillis()
	thought := &Thought{
		ID:        uuid.NewString(),
		UserID:    userID,
		Content:   content,
		Topic:     topic,
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return putJSON(txn, thoughtKey(thought.ID), thought)
	})
	if err != nil {
		return nil, err
	}
	return thought, nil
}

// GetThought loads a thought owned by userID.
func (s *Store) GetThought(ctx context.Context, thoughtID, userID string) (*Thought, error) {
	var thought Thought
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, thoughtKey(thoughtID), &thought)
	})
	if err != nil {
		return nil, err
	}
	if thought.UserID != userID {
		return nil, ErrNotFound
	}
	return &thought, nil
}

// UpdateThought applies a partial mutation to an owned thought.
func (s *Store) UpdateThought(ctx context.Context, thoughtID, userID string, patch ThoughtPatch) (*Thought, error) {
	var thought Thought
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := getJSON(txn, thoughtKey(thoughtID), &thought); err != nil {
			return err
		}
		if thought.UserID != userID {
			return ErrNotFound
		}
		if patch.Content != nil && *patch.Content != "" {
			thought.Content = *patch.Content
		}
		if patch.Topic != nil {
			thought.Topic = *patch.Topic
		}
		if patch.Source != nil {
			thought.Source = *patch.Source
		}
		thought.UpdatedAt = nowMillis()
		return putJSON(txn, thoughtKey(thoughtID), &thought)
	})
	if err != nil {
		return nil, err
	}
	return &thought, nil
}

// DeleteThought removes an owned thought.
func (s *Store) DeleteThought(ctx context.Context, thoughtID, userID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var thought Thought
		if err := getJSON(txn, thoughtKey(thoughtID), &thought); err != nil {
			return err
		}
		if thought.UserID != userID {
			return ErrNotFound
		}
		return txn.Delete(thoughtKey(thoughtID))
	})
}

// ListThoughts returns every thought owned by userID ordered by
// creation time.
func (s *Store) ListThoughts(ctx context.Context, userID string) ([]*Thought, error) {
	var thoughts []*Thought
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("thought/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var thought Thought
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &thought)
			})
			if err != nil {
				return err
			}
			if thought.UserID != userID {
				continue
			}
			clone := thought
			thoughts = append(thoughts, &clone)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(thoughts, func(i, j int) bool {
		if thoughts[i].CreatedAt != thoughts[j].CreatedAt {
			return thoughts[i].CreatedAt < thoughts[j].CreatedAt
		}
		return thoughts[i].ID < thoughts[j].ID
	})
	return thoughts, nil
}
