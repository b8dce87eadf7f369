package graph

import (
	"sort"
	"sync"
)

// AnnoStorage stores annotations for items of type T, which is either NodeID
// (the node annotation store of the graph) or Edge (the per-component edge
// annotation stores).
//
// All implementations are safe for concurrent readers; the pipeline never
// mutates a storage concurrently (see the executor's shared-state rules).
type AnnoStorage[T comparable] interface {
	// Set inserts or overwrites one annotation. Re-setting an identical
	// annotation is a no-op and reports no change.
	Set(item T, anno Annotation) (changed bool, err error)

	// GetValue returns the value for (item, key), if present.
	GetValue(item T, key AnnoKey) (value string, ok bool, err error)

	// Has reports whether the item carries an annotation with the key.
	Has(item T, key AnnoKey) (bool, error)

	// GetAnnotations returns all annotations of the item, sorted by key.
	GetAnnotations(item T) ([]Annotation, error)

	// Remove deletes the annotation with the key from the item.
	Remove(item T, key AnnoKey) (changed bool, err error)

	// RemoveItem deletes every annotation of the item.
	RemoveItem(item T) error

	// Search yields every (item, key) pair whose annotation matches the
	// given name, the optional namespace (nil matches any namespace) and the
	// value constraint. Result order is unspecified.
	Search(ns *string, name string, value ValueSearch) ([]AnnoRef[T], error)

	// Items enumerates every item that carries at least one annotation.
	Items() ([]T, error)
}

// AnnoRef is one search hit: the item plus the matched key.
type AnnoRef[T comparable] struct {
	Item T
	Key  AnnoKey
}

// memoryAnnoStorage is the map-backed annotation store. It keeps an inverted
// index from key to items so value searches do not scan every item.
type memoryAnnoStorage[T comparable] struct {
	mu    sync.RWMutex
	annos map[T]map[AnnoKey]string
	byKey map[AnnoKey]map[T]string
}

func newMemoryAnnoStorage[T comparable]() *memoryAnnoStorage[T] {
	return &memoryAnnoStorage[T]{
		annos: make(map[T]map[AnnoKey]string),
		byKey: make(map[AnnoKey]map[T]string),
	}
}

func (s *memoryAnnoStorage[T]) Set(item T, anno Annotation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	forItem, ok := s.annos[item]
	if !ok {
		forItem = make(map[AnnoKey]string)
		s.annos[item] = forItem
	}
	if old, ok := forItem[anno.Key]; ok && old == anno.Value {
		return false, nil
	}
	forItem[anno.Key] = anno.Value

	forKey, ok := s.byKey[anno.Key]
	if !ok {
		forKey = make(map[T]string)
		s.byKey[anno.Key] = forKey
	}
	forKey[item] = anno.Value
	return true, nil
}

func (s *memoryAnnoStorage[T]) GetValue(item T, key AnnoKey) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.annos[item][key]
	return value, ok, nil
}

func (s *memoryAnnoStorage[T]) Has(item T, key AnnoKey) (bool, error) {
	_, ok, err := s.GetValue(item, key)
	return ok, err
}

func (s *memoryAnnoStorage[T]) GetAnnotations(item T) ([]Annotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	forItem := s.annos[item]
	result := make([]Annotation, 0, len(forItem))
	for key, value := range forItem {
		result = append(result, Annotation{Key: key, Value: value})
	}
	sortAnnotations(result)
	return result, nil
}

func (s *memoryAnnoStorage[T]) Remove(item T, key AnnoKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	forItem, ok := s.annos[item]
	if !ok {
		return false, nil
	}
	if _, ok := forItem[key]; !ok {
		return false, nil
	}
	delete(forItem, key)
	if len(forItem) == 0 {
		delete(s.annos, item)
	}
	delete(s.byKey[key], item)
	if len(s.byKey[key]) == 0 {
		delete(s.byKey, key)
	}
	return true, nil
}

func (s *memoryAnnoStorage[T]) RemoveItem(item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.annos[item] {
		delete(s.byKey[key], item)
		if len(s.byKey[key]) == 0 {
			delete(s.byKey, key)
		}
	}
	delete(s.annos, item)
	return nil
}

func (s *memoryAnnoStorage[T]) Search(ns *string, name string, value ValueSearch) ([]AnnoRef[T], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if value.kind == valueNone {
		return s.searchWithout(ns, name), nil
	}

	var result []AnnoRef[T]
	for key, items := range s.byKey {
		if key.Name != name {
			continue
		}
		if ns != nil && key.Namespace != *ns {
			continue
		}
		for item, v := range items {
			if value.kind == valueExact && v != value.value {
				continue
			}
			result = append(result, AnnoRef[T]{Item: item, Key: key})
		}
	}
	return result, nil
}

// searchWithout yields items lacking any annotation that matches (ns, name).
// The matched key on the result is the searched key itself.
func (s *memoryAnnoStorage[T]) searchWithout(ns *string, name string) []AnnoRef[T] {
	searched := AnnoKey{Name: name}
	if ns != nil {
		searched.Namespace = *ns
	}
	var result []AnnoRef[T]
	for item, forItem := range s.annos {
		found := false
		for key := range forItem {
			if key.Name == name && (ns == nil || key.Namespace == *ns) {
				found = true
				break
			}
		}
		if !found {
			result = append(result, AnnoRef[T]{Item: item, Key: searched})
		}
	}
	return result
}

func (s *memoryAnnoStorage[T]) Items() ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]T, 0, len(s.annos))
	for item := range s.annos {
		items = append(items, item)
	}
	return items, nil
}

func sortAnnotations(annos []Annotation) {
	sort.Slice(annos, func(i, j int) bool {
		return annos[i].Key.Compare(annos[j].Key) < 0
	})
}
