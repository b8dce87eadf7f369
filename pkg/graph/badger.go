package graph

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// The on-disk backend stores annotations and adjacency in a single BadgerDB
// instance per graph. Every storage (the node annotation store and each
// component) owns a distinct 4-byte key prefix handed out by the graph, and
// organizes its keys with a single-byte sub-prefix below that.
const (
	subAnnoData  = byte(0x01) // <storage>|0x01|item|ns|0x00|name -> value
	subAnnoIndex = byte(0x02) // <storage>|0x02|name|0x00|ns|0x00|item -> value
	subEdgeOut   = byte(0x01) // <storage>|0x01|source|target -> {}
	subEdgeIn    = byte(0x02) // <storage>|0x02|target|source -> {}
	subEdgeAnnos = byte(0x03) // prefix handed to the edge annotation store
)

// itemCodec converts storage items to fixed-size byte keys.
type itemCodec[T comparable] struct {
	size   int
	encode func(T) []byte
	decode func([]byte) T
}

var nodeIDCodec = itemCodec[NodeID]{
	size: 8,
	encode: func(n NodeID) []byte {
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(n))
		return buf
	},
	decode: func(b []byte) NodeID {
		return NodeID(binary.BigEndian.Uint64(b))
	},
}

var edgeCodec = itemCodec[Edge]{
	size: 16,
	encode: func(e Edge) []byte {
		buf := make([]byte, 16)
		binary.BigEndian.PutUint64(buf, uint64(e.Source))
		binary.BigEndian.PutUint64(buf[8:], uint64(e.Target))
		return buf
	},
	decode: func(b []byte) Edge {
		return Edge{
			Source: NodeID(binary.BigEndian.Uint64(b)),
			Target: NodeID(binary.BigEndian.Uint64(b[8:])),
		}
	},
}

// badgerAnnoStorage implements AnnoStorage on a shared BadgerDB.
type badgerAnnoStorage[T comparable] struct {
	db     *badger.DB
	prefix []byte
	codec  itemCodec[T]
}

func newBadgerAnnoStorage[T comparable](db *badger.DB, prefix []byte, codec itemCodec[T]) *badgerAnnoStorage[T] {
	return &badgerAnnoStorage[T]{db: db, prefix: prefix, codec: codec}
}

func (s *badgerAnnoStorage[T]) dataKey(item T, key AnnoKey) []byte {
	k := append([]byte{}, s.prefix...)
	k = append(k, subAnnoData)
	k = append(k, s.codec.encode(item)...)
	k = append(k, key.Namespace...)
	k = append(k, 0x00)
	k = append(k, key.Name...)
	return k
}

func (s *badgerAnnoStorage[T]) indexKey(item T, key AnnoKey) []byte {
	k := append([]byte{}, s.prefix...)
	k = append(k, subAnnoIndex)
	k = append(k, key.Name...)
	k = append(k, 0x00)
	k = append(k, key.Namespace...)
	k = append(k, 0x00)
	k = append(k, s.codec.encode(item)...)
	return k
}

// parseDataKey splits a data key into item and annotation key.
func (s *badgerAnnoStorage[T]) parseDataKey(k []byte) (T, AnnoKey, error) {
	var zero T
	rest := k[len(s.prefix)+1:]
	if len(rest) < s.codec.size {
		return zero, AnnoKey{}, fmt.Errorf("malformed annotation key %x", k)
	}
	item := s.codec.decode(rest[:s.codec.size])
	rest = rest[s.codec.size:]
	sep := bytes.IndexByte(rest, 0x00)
	if sep < 0 {
		return zero, AnnoKey{}, fmt.Errorf("malformed annotation key %x", k)
	}
	return item, AnnoKey{Namespace: string(rest[:sep]), Name: string(rest[sep+1:])}, nil
}

// parseIndexKey splits an index key into item and annotation key.
func (s *badgerAnnoStorage[T]) parseIndexKey(k []byte) (T, AnnoKey, error) {
	var zero T
	rest := k[len(s.prefix)+1:]
	if len(rest) < s.codec.size+2 {
		return zero, AnnoKey{}, fmt.Errorf("malformed annotation index key %x", k)
	}
	item := s.codec.decode(rest[len(rest)-s.codec.size:])
	rest = rest[:len(rest)-s.codec.size]
	// rest is name|0x00|ns|0x00
	sep := bytes.IndexByte(rest, 0x00)
	if sep < 0 || rest[len(rest)-1] != 0x00 {
		return zero, AnnoKey{}, fmt.Errorf("malformed annotation index key %x", k)
	}
	return item, AnnoKey{Name: string(rest[:sep]), Namespace: string(rest[sep+1 : len(rest)-1])}, nil
}

func (s *badgerAnnoStorage[T]) Set(item T, anno Annotation) (bool, error) {
	changed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		dataKey := s.dataKey(item, anno.Key)
		if existing, err := txn.Get(dataKey); err == nil {
			same := false
			verr := existing.Value(func(v []byte) error {
				same = string(v) == anno.Value
				return nil
			})
			if verr != nil {
				return verr
			}
			if same {
				return nil
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		changed = true
		if err := txn.Set(dataKey, []byte(anno.Value)); err != nil {
			return err
		}
		return txn.Set(s.indexKey(item, anno.Key), []byte(anno.Value))
	})
	return changed, err
}

func (s *badgerAnnoStorage[T]) GetValue(item T, key AnnoKey) (string, bool, error) {
	var value string
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		entry, err := txn.Get(s.dataKey(item, key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return entry.Value(func(v []byte) error {
			value = string(v)
			return nil
		})
	})
	return value, found, err
}

func (s *badgerAnnoStorage[T]) Has(item T, key AnnoKey) (bool, error) {
	_, ok, err := s.GetValue(item, key)
	return ok, err
}

func (s *badgerAnnoStorage[T]) GetAnnotations(item T) ([]Annotation, error) {
	prefix := append(append(append([]byte{}, s.prefix...), subAnnoData), s.codec.encode(item)...)
	var result []Annotation
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: 32})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			entry := it.Item()
			_, key, err := s.parseDataKey(entry.Key())
			if err != nil {
				return err
			}
			verr := entry.Value(func(v []byte) error {
				result = append(result, Annotation{Key: key, Value: string(v)})
				return nil
			})
			if verr != nil {
				return verr
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortAnnotations(result)
	return result, nil
}

func (s *badgerAnnoStorage[T]) Remove(item T, key AnnoKey) (bool, error) {
	changed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		dataKey := s.dataKey(item, key)
		if _, err := txn.Get(dataKey); err == badger.ErrKeyNotFound {
			return nil
		} else if err != nil {
			return err
		}
		changed = true
		if err := txn.Delete(dataKey); err != nil {
			return err
		}
		return txn.Delete(s.indexKey(item, key))
	})
	return changed, err
}

func (s *badgerAnnoStorage[T]) RemoveItem(item T) error {
	annos, err := s.GetAnnotations(item)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, anno := range annos {
			if err := txn.Delete(s.dataKey(item, anno.Key)); err != nil {
				return err
			}
			if err := txn.Delete(s.indexKey(item, anno.Key)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *badgerAnnoStorage[T]) Search(ns *string, name string, value ValueSearch) ([]AnnoRef[T], error) {
	if value.kind == valueNone {
		return s.searchWithout(ns, name)
	}
	prefix := append(append(append([]byte{}, s.prefix...), subAnnoIndex), name...)
	prefix = append(prefix, 0x00)
	var result []AnnoRef[T]
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: 64})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			entry := it.Item()
			item, key, err := s.parseIndexKey(entry.Key())
			if err != nil {
				return err
			}
			if ns != nil && key.Namespace != *ns {
				continue
			}
			if value.kind == valueExact {
				matches := false
				verr := entry.Value(func(v []byte) error {
					matches = string(v) == value.value
					return nil
				})
				if verr != nil {
					return verr
				}
				if !matches {
					continue
				}
			}
			result = append(result, AnnoRef[T]{Item: item, Key: key})
		}
		return nil
	})
	return result, err
}

func (s *badgerAnnoStorage[T]) searchWithout(ns *string, name string) ([]AnnoRef[T], error) {
	items, err := s.Items()
	if err != nil {
		return nil, err
	}
	searched := AnnoKey{Name: name}
	if ns != nil {
		searched.Namespace = *ns
	}
	var result []AnnoRef[T]
	for _, item := range items {
		annos, err := s.GetAnnotations(item)
		if err != nil {
			return nil, err
		}
		found := false
		for _, anno := range annos {
			if anno.Key.Name == name && (ns == nil || anno.Key.Namespace == *ns) {
				found = true
				break
			}
		}
		if !found {
			result = append(result, AnnoRef[T]{Item: item, Key: searched})
		}
	}
	return result, nil
}

func (s *badgerAnnoStorage[T]) Items() ([]T, error) {
	prefix := append(append([]byte{}, s.prefix...), subAnnoData)
	var result []T
	var haveLast bool
	var last T
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item, _, err := s.parseDataKey(it.Item().Key())
			if err != nil {
				return err
			}
			// Keys are sorted, so annotations of one item are contiguous.
			if haveLast && item == last {
				continue
			}
			haveLast = true
			last = item
			result = append(result, item)
		}
		return nil
	})
	return result, err
}

// badgerGraphStorage implements the edge storage of one component on the
// shared BadgerDB.
type badgerGraphStorage struct {
	db     *badger.DB
	prefix []byte
	annos  *badgerAnnoStorage[Edge]
}

func newBadgerGraphStorage(db *badger.DB, prefix []byte) *badgerGraphStorage {
	annoPrefix := append(append([]byte{}, prefix...), subEdgeAnnos)
	return &badgerGraphStorage{
		db:     db,
		prefix: prefix,
		annos:  newBadgerAnnoStorage(db, annoPrefix, edgeCodec),
	}
}

func (s *badgerGraphStorage) edgeKey(sub byte, first, second NodeID) []byte {
	k := append(append([]byte{}, s.prefix...), sub)
	k = append(k, nodeIDCodec.encode(first)...)
	k = append(k, nodeIDCodec.encode(second)...)
	return k
}

func (s *badgerGraphStorage) AddEdge(e Edge) (bool, error) {
	changed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		outKey := s.edgeKey(subEdgeOut, e.Source, e.Target)
		if _, err := txn.Get(outKey); err == nil {
			return nil
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		changed = true
		if err := txn.Set(outKey, nil); err != nil {
			return err
		}
		return txn.Set(s.edgeKey(subEdgeIn, e.Target, e.Source), nil)
	})
	return changed, err
}

func (s *badgerGraphStorage) DeleteEdge(e Edge) (bool, error) {
	changed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		outKey := s.edgeKey(subEdgeOut, e.Source, e.Target)
		if _, err := txn.Get(outKey); err == badger.ErrKeyNotFound {
			return nil
		} else if err != nil {
			return err
		}
		changed = true
		if err := txn.Delete(outKey); err != nil {
			return err
		}
		return txn.Delete(s.edgeKey(subEdgeIn, e.Target, e.Source))
	})
	if err != nil || !changed {
		return changed, err
	}
	return changed, s.annos.RemoveItem(e)
}

func (s *badgerGraphStorage) DeleteNode(node NodeID) (bool, error) {
	outgoing, err := s.GetOutgoingEdges(node)
	if err != nil {
		return false, err
	}
	ingoing, err := s.GetIngoingEdges(node)
	if err != nil {
		return false, err
	}
	changed := false
	for _, target := range outgoing {
		if _, err := s.DeleteEdge(Edge{Source: node, Target: target}); err != nil {
			return changed, err
		}
		changed = true
	}
	for _, source := range ingoing {
		if _, err := s.DeleteEdge(Edge{Source: source, Target: node}); err != nil {
			return changed, err
		}
		changed = true
	}
	return changed, nil
}

// scanNeighbors lists the second node of every key below sub|first.
func (s *badgerGraphStorage) scanNeighbors(sub byte, first NodeID) ([]NodeID, error) {
	prefix := append(append([]byte{}, s.prefix...), sub)
	prefix = append(prefix, nodeIDCodec.encode(first)...)
	var result []NodeID
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			k := it.Item().Key()
			result = append(result, nodeIDCodec.decode(k[len(k)-8:]))
		}
		return nil
	})
	return result, err
}

func (s *badgerGraphStorage) SourceNodes() ([]NodeID, error) {
	prefix := append(append([]byte{}, s.prefix...), subEdgeOut)
	var result []NodeID
	var haveLast bool
	var last NodeID
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			k := it.Item().Key()
			source := nodeIDCodec.decode(k[len(s.prefix)+1 : len(s.prefix)+9])
			if haveLast && source == last {
				continue
			}
			haveLast = true
			last = source
			result = append(result, source)
		}
		return nil
	})
	return result, err
}

func (s *badgerGraphStorage) GetOutgoingEdges(source NodeID) ([]NodeID, error) {
	return s.scanNeighbors(subEdgeOut, source)
}

func (s *badgerGraphStorage) GetIngoingEdges(target NodeID) ([]NodeID, error) {
	return s.scanNeighbors(subEdgeIn, target)
}

func (s *badgerGraphStorage) HasOutgoingEdges(node NodeID) (bool, error) {
	targets, err := s.GetOutgoingEdges(node)
	return len(targets) > 0, err
}

func (s *badgerGraphStorage) HasIngoingEdges(node NodeID) (bool, error) {
	sources, err := s.GetIngoingEdges(node)
	return len(sources) > 0, err
}

func (s *badgerGraphStorage) IsConnected(source, target NodeID, minDistance, maxDistance uint64) (bool, error) {
	return isConnected(s, source, target, minDistance, maxDistance)
}

func (s *badgerGraphStorage) FindConnected(source NodeID, minDistance, maxDistance uint64) ([]NodeID, error) {
	return findConnected(s.GetOutgoingEdges, source, minDistance, maxDistance)
}

func (s *badgerGraphStorage) FindConnectedInverse(target NodeID, minDistance, maxDistance uint64) ([]NodeID, error) {
	return findConnected(s.GetIngoingEdges, target, minDistance, maxDistance)
}

func (s *badgerGraphStorage) EachDFS(start NodeID, minDistance, maxDistance uint64, visit func(DFSStep) bool) error {
	return eachDFS(s.GetOutgoingEdges, start, minDistance, maxDistance, visit)
}

func (s *badgerGraphStorage) NumberOfEdges() (int, error) {
	prefix := append(append([]byte{}, s.prefix...), subEdgeOut)
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func (s *badgerGraphStorage) EdgeAnnos() AnnoStorage[Edge] { return s.annos }
