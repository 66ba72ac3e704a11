// Package xref is the Reference Resolver (spec.md §4.I): it builds the
// pk_index/index_index maps from gathered tuples and answers FK/JK
// membership checks against them in phase 2.
//
// Grounded on the original implementation's FK second pass
// (fk_check.py doSecondPass / join_check.py): foreign keys are gathered
// during phase 1 against a (schema_id, name) key and only checked once
// every primary-key/index declaration has finished registering — exactly
// the phase-1-barrier-then-phase-2 shape spec.md §5 requires.
package xref

import "github.com/relstore/xschema/xtypes"

// NamedKey identifies one primary_key or index declaration: a schema-id
// plus its name ("" for the unnamed/default declaration of that
// schema-id). Per spec.md §9's open question, this namespace is never
// merged across schema-ids — two different schemas' unnamed PK
// declarations are always distinct keys.
type NamedKey struct {
	SchemaID string
	Name     string
}

// ReferenceResult is the three-way outcome of a FK/JK membership check.
type ReferenceResult int

const (
	// RefOK: the tuple is present in the target PK/Index set.
	RefOK ReferenceResult = iota
	// RefDangling: the target PK/Index is declared but the tuple is absent.
	RefDangling
	// RefUnresolved: no PK/Index declaration exists for the target key at all.
	RefUnresolved
)

type tupleInfo struct {
	origins map[xtypes.Origin]bool
	count   int
}

func newTupleInfo(origin xtypes.Origin) *tupleInfo {
	return &tupleInfo{origins: map[xtypes.Origin]bool{origin: true}, count: 1}
}

// Resolver holds the pk_index and index_index maps (spec.md §4.I).
type Resolver struct {
	pkIndex    map[NamedKey]map[string]*tupleInfo
	indexIndex map[NamedKey]map[string]*tupleInfo
}

// NewResolver returns an empty Resolver.
func NewResolver() *Resolver {
	return &Resolver{
		pkIndex:    map[NamedKey]map[string]*tupleInfo{},
		indexIndex: map[NamedKey]map[string]*tupleInfo{},
	}
}

// DeclarePK marks key as a declared primary_key target, even before any
// tuple is registered under it — so a FK referencing it before any
// instance matched is RefDangling, not RefUnresolved.
func (r *Resolver) DeclarePK(key NamedKey) {
	if r.pkIndex[key] == nil {
		r.pkIndex[key] = map[string]*tupleInfo{}
	}
}

// DeclareIndex marks key as a declared index target.
func (r *Resolver) DeclareIndex(key NamedKey) {
	if r.indexIndex[key] == nil {
		r.indexIndex[key] = map[string]*tupleInfo{}
	}
}

// RegisterPK records tuple under key, enforcing primary-key uniqueness. A
// collision is a violation unless allowProviderDuplicates is set and at
// least one side of the collision — the pre-existing registration or this
// one — is Provider-origin (spec.md §8 scenario S5: a provider-sourced "X"
// colliding with a local instance's own "X" is accepted once the flag is
// set, not just provider-vs-provider collisions).
func (r *Resolver) RegisterPK(key NamedKey, tuple xtypes.KeyTuple, origin xtypes.Origin, allowProviderDuplicates bool) (violation bool) {
	r.DeclarePK(key)
	set := r.pkIndex[key]
	canon := tuple.Canon()
	info, exists := set[canon]
	if !exists {
		set[canon] = newTupleInfo(origin)
		return false
	}

	involvesProvider := origin == xtypes.Provider || info.origins[xtypes.Provider]
	info.origins[origin] = true
	info.count++
	if allowProviderDuplicates && involvesProvider {
		return false
	}
	return true
}

// RegisterIndex records tuple under key. Index membership carries no
// uniqueness enforcement — duplicates simply accumulate, per spec.md §4.D's
// index semantics (registration only, never a violation source).
func (r *Resolver) RegisterIndex(key NamedKey, tuple xtypes.KeyTuple, origin xtypes.Origin) {
	r.DeclareIndex(key)
	set := r.indexIndex[key]
	canon := tuple.Canon()
	if info, exists := set[canon]; exists {
		info.origins[origin] = true
		info.count++
		return
	}
	set[canon] = newTupleInfo(origin)
}

// CheckForeignKey answers a foreign_keys membership check against
// (targetSchemaID, targetName): RefUnresolved if no primary_key was ever
// declared for that key, RefDangling if it was declared but tuple is
// absent, RefOK otherwise. It never consults the index registry — a
// foreign_keys site refers to a primary_key target only (spec.md §4.F).
func (r *Resolver) CheckForeignKey(targetSchemaID, targetName string, tuple xtypes.KeyTuple) ReferenceResult {
	key := NamedKey{SchemaID: targetSchemaID, Name: targetName}
	set, declared := r.pkIndex[key]
	if !declared {
		return RefUnresolved
	}
	if _, ok := set[tuple.Canon()]; ok {
		return RefOK
	}
	return RefDangling
}

// CheckJoinKey is CheckForeignKey's counterpart for join_keys: it consults
// only the index registry, never pkIndex (spec.md §4.F).
func (r *Resolver) CheckJoinKey(targetSchemaID, targetName string, tuple xtypes.KeyTuple) ReferenceResult {
	key := NamedKey{SchemaID: targetSchemaID, Name: targetName}
	set, declared := r.indexIndex[key]
	if !declared {
		return RefUnresolved
	}
	if _, ok := set[tuple.Canon()]; ok {
		return RefOK
	}
	return RefDangling
}
