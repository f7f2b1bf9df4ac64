//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides an in-memory content store.
// It is suitable for testing and development environments.
package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/nifty-mvp/nifty/content"
	icontent "github.com/nifty-mvp/nifty/internal/content"
)

// Name is the backend name.
const Name = "memory"

// Service keeps content in a map keyed by CIDv1.
type Service struct {
	// mutex protects concurrent access to the objects map
	mutex sync.RWMutex
	// objects stores content by cid
	objects map[string]*content.Content
}

var (
	_ content.Store  = (*Service)(nil)
	_ content.Reader = (*Service)(nil)
)

// NewService creates a new in-memory content store.
func NewService() *Service {
	return &Service{
		objects: make(map[string]*content.Content),
	}
}

// Name implements content.Store.
func (s *Service) Name() string { return Name }

// Put implements content.Store. Storing the same bytes twice yields the
// same identifier.
func (s *Service) Put(ctx context.Context, c *content.Content) (string, error) {
	if c == nil {
		return "", fmt.Errorf("content is nil")
	}
	id, err := icontent.ComputeCID(c.Data)
	if err != nil {
		return "", err
	}
	stored := &content.Content{
		Data:     append([]byte(nil), c.Data...),
		MimeType: c.MimeType,
		Name:     c.Name,
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.objects[id] = stored
	return id, nil
}

// Get implements content.Reader.
func (s *Service) Get(ctx context.Context, cid string) (*content.Content, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	c, ok := s.objects[cid]
	if !ok {
		return nil, content.ErrNotFound
	}
	return &content.Content{
		Data:     append([]byte(nil), c.Data...),
		MimeType: c.MimeType,
		Name:     c.Name,
	}, nil
}

// Len returns the number of stored objects.
func (s *Service) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.objects)
}
