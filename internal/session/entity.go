package session

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"

	"sqlcriteria/internal/mapping"
)

// Entity is a materialized row of a mapped entity together with the
// associations fetched onto it.
type Entity struct {
	mapped *mapping.Entity
	fields []string
	values map[string]any

	refs        map[string]*Entity
	collections map[string][]*Entity
	// index of collection members by primary key, used when collapsing rows.
	members map[string]map[string]*Entity
}

func newEntity(mapped *mapping.Entity) *Entity {
	return &Entity{mapped: mapped, values: make(map[string]any)}
}

func (e *Entity) set(attr string, v any) {
	if _, ok := e.values[attr]; !ok {
		e.fields = append(e.fields, attr)
	}
	e.values[attr] = v
}

// Name is the mapped entity name.
func (e *Entity) Name() string { return e.mapped.Name }

// ID returns the primary key value.
func (e *Entity) ID() any { return e.values[e.mapped.PrimaryKey] }

// Get returns the value of a field or many-to-one join column attribute.
func (e *Entity) Get(attr string) any { return e.values[attr] }

// Has reports whether attr was materialized.
func (e *Entity) Has(attr string) bool {
	_, ok := e.values[attr]
	return ok
}

// Fetched reports whether association was fetched onto this entity.
func (e *Entity) Fetched(association string) bool {
	if _, ok := e.refs[association]; ok {
		return true
	}
	_, ok := e.collections[association]
	return ok
}

// Ref returns a fetched many-to-one association, or nil when it was not
// fetched or the reference is NULL.
func (e *Entity) Ref(association string) *Entity { return e.refs[association] }

// Collection returns a fetched one-to-many association. A fetched collection
// with no members is empty, not nil.
func (e *Entity) Collection(association string) []*Entity { return e.collections[association] }

func (e *Entity) setRef(association string, target *Entity) {
	if e.refs == nil {
		e.refs = make(map[string]*Entity)
	}
	if cur, ok := e.refs[association]; ok && cur != nil && target != nil && idKey(cur.ID()) == idKey(target.ID()) {
		cur.merge(target)
		return
	}
	if cur := e.refs[association]; cur == nil {
		e.refs[association] = target
	}
}

// addMember appends member to the collection unless an entity with the same
// primary key is already there, in which case the two are merged. It returns
// the entity that stays in the collection.
func (e *Entity) addMember(association string, member *Entity) *Entity {
	if e.collections == nil {
		e.collections = make(map[string][]*Entity)
		e.members = make(map[string]map[string]*Entity)
	}
	if _, ok := e.collections[association]; !ok {
		e.collections[association] = []*Entity{}
		e.members[association] = make(map[string]*Entity)
	}
	if member == nil {
		return nil
	}
	key := idKey(member.ID())
	if cur, ok := e.members[association][key]; ok {
		cur.merge(member)
		return cur
	}
	e.members[association][key] = member
	e.collections[association] = append(e.collections[association], member)
	return member
}

// merge folds the fetched associations of other, a copy of the same entity
// read from a later row, into e.
func (e *Entity) merge(other *Entity) {
	if other == nil || other == e {
		return
	}
	for _, name := range sortedKeys(other.refs) {
		e.setRef(name, other.refs[name])
	}
	for _, name := range sortedKeys(other.collections) {
		e.addMember(name, nil)
		for _, m := range other.collections[name] {
			e.addMember(name, m)
		}
	}
}

// Map returns the fields and fetched associations as nested maps keyed by
// attribute and association name.
func (e *Entity) Map() map[string]any {
	out := make(map[string]any, len(e.values)+len(e.refs)+len(e.collections))
	for k, v := range e.values {
		out[k] = v
	}
	for name, ref := range e.refs {
		if ref == nil {
			out[name] = nil
			continue
		}
		out[name] = ref.Map()
	}
	for name, members := range e.collections {
		list := make([]map[string]any, len(members))
		for i, m := range members {
			list[i] = m.Map()
		}
		out[name] = list
	}
	return out
}

// Decode copies the entity into out, a pointer to a struct, matching field
// names case-insensitively or through `criteria` struct tags.
func (e *Entity) Decode(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "criteria",
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc("2006-01-02 15:04:05"),
	})
	if err != nil {
		return fmt.Errorf("session: decoder for %s: %w", e.Name(), err)
	}
	if err := decoder.Decode(e.Map()); err != nil {
		return fmt.Errorf("session: decode %s: %w", e.Name(), err)
	}
	return nil
}

func (e *Entity) String() string {
	var b strings.Builder
	b.WriteString(e.mapped.Name + "{")
	for i, f := range e.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", f, e.values[f])
	}
	for _, name := range sortedKeys(e.refs) {
		fmt.Fprintf(&b, ", %s=%v", name, e.refs[name])
	}
	for _, name := range sortedKeys(e.collections) {
		fmt.Fprintf(&b, ", %s=%d items", name, len(e.collections[name]))
	}
	b.WriteString("}")
	return b.String()
}

func idKey(v any) string {
	if b, ok := v.([]byte); ok {
		return fmt.Sprintf("bytes:%x", b)
	}
	return fmt.Sprintf("%T:%v", v, v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
