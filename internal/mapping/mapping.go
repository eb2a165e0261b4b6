// Package mapping holds the declarative entity-to-table metadata consumed by the
// criteria builder: per entity its table, primary key, column mappings and
// declared associations. A Registry is built once at startup and validated
// before any query references it.
package mapping

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"sqlcriteria/internal/naming"
	"sqlcriteria/internal/sqltype"
)

var (
	// ErrInvalidMapping is returned when entity metadata fails validation.
	ErrInvalidMapping = errors.New("invalid mapping")
	// ErrUnknownEntity is returned when an entity name is not registered.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrUnknownAssociation is returned when an entity declares no association with the given name.
	ErrUnknownAssociation = errors.New("unknown association")
)

// AssociationKind distinguishes the owning and inverse sides of a relationship.
type AssociationKind int

const (
	// ManyToOne associations own a join column on the declaring entity's table.
	ManyToOne AssociationKind = iota + 1
	// OneToMany associations are the inverse side of a ManyToOne declared on the target.
	OneToMany
)

func (k AssociationKind) String() string {
	switch k {
	case ManyToOne:
		return "many-to-one"
	case OneToMany:
		return "one-to-many"
	default:
		return "unknown"
	}
}

// MarshalText writes the kind in the form UnmarshalText reads.
func (k AssociationKind) MarshalText() ([]byte, error) {
	if k != ManyToOne && k != OneToMany {
		return nil, fmt.Errorf("%w: association kind %d", ErrInvalidMapping, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText parses "many-to-one" / "one-to-many" (underscores and case are ignored).
func (k *AssociationKind) UnmarshalText(text []byte) error {
	switch strings.ReplaceAll(strings.ToLower(string(text)), "_", "-") {
	case "many-to-one", "manytoone":
		*k = ManyToOne
	case "one-to-many", "onetomany":
		*k = OneToMany
	default:
		return fmt.Errorf("%w: association kind %q", ErrInvalidMapping, string(text))
	}
	return nil
}

// Field maps one storable attribute to a column.
type Field struct {
	Name       string       `yaml:"name"`
	Column     string       `yaml:"column"`
	SQLType    string       `yaml:"type"`
	Nullable   bool         `yaml:"nullable,omitempty"`
	EnumValues []string     `yaml:"enum,omitempty"`
	Kind       sqltype.Kind `yaml:"-"`
}

// Association declares a relationship from the owning entity to Target.
type Association struct {
	Name   string          `yaml:"name"`
	Kind   AssociationKind `yaml:"kind"`
	Target string          `yaml:"target"`
	// JoinColumn is the foreign key column on the declaring table (many-to-one only).
	JoinColumn string `yaml:"joinColumn,omitempty"`
	// MappedBy names the many-to-one association on Target that owns the relationship (one-to-many only).
	MappedBy string `yaml:"mappedBy,omitempty"`
	Optional bool   `yaml:"optional,omitempty"`
}

// Entity describes one stored entity kind.
type Entity struct {
	Name         string        `yaml:"name"`
	Table        string        `yaml:"table"`
	PrimaryKey   string        `yaml:"primaryKey"`
	Fields       []Field       `yaml:"fields"`
	Associations []Association `yaml:"associations"`

	fieldIndex map[string]int
	assocIndex map[string]int
}

// Field returns the field with the given name.
func (e *Entity) Field(name string) (*Field, bool) {
	idx, ok := e.fieldIndex[name]
	if !ok {
		return nil, false
	}
	return &e.Fields[idx], true
}

// Association returns the association with the given name.
func (e *Entity) Association(name string) (*Association, bool) {
	idx, ok := e.assocIndex[name]
	if !ok {
		return nil, false
	}
	return &e.Associations[idx], true
}

// PrimaryKeyField returns the primary key field.
func (e *Entity) PrimaryKeyField() *Field {
	f, _ := e.Field(e.PrimaryKey)
	return f
}

// JoinColumn pairs a column on the parent side of a join with a column on the target side.
type JoinColumn struct {
	Local  string
	Remote string
}

// Registry is the validated, read-only set of entity mappings.
type Registry struct {
	entities []*Entity
	byName   map[string]*Entity
	namer    *naming.Namer
	logger   *slog.Logger
}

// Option configures registry construction.
type Option func(*registryOptions)

type registryOptions struct {
	namer  *naming.Namer
	logger *slog.Logger
}

// WithNamer overrides the naming rules used for implicit names.
func WithNamer(namer *naming.Namer) Option {
	return func(o *registryOptions) {
		o.namer = namer
	}
}

// WithLogger sets the logger used to report applied defaults.
func WithLogger(logger *slog.Logger) Option {
	return func(o *registryOptions) {
		o.logger = logger
	}
}

// NewRegistry normalizes implicit names and validates the entities once.
// The returned error wraps ErrInvalidMapping and lists every problem found.
func NewRegistry(entities []Entity, opts ...Option) (*Registry, error) {
	options := registryOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.namer == nil {
		options.namer = naming.New(naming.DefaultConfig(), options.logger)
	}

	r := &Registry{
		byName: make(map[string]*Entity, len(entities)),
		namer:  options.namer,
		logger: options.logger,
	}

	var errs []error
	for i := range entities {
		e := entities[i]
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("%w: entity #%d has no name", ErrInvalidMapping, i))
			continue
		}
		if _, dup := r.byName[e.Name]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate entity %s", ErrInvalidMapping, e.Name))
			continue
		}
		r.normalizeEntity(&e)
		r.entities = append(r.entities, &e)
		r.byName[e.Name] = &e
	}

	for _, e := range r.entities {
		errs = append(errs, r.validateEntity(e)...)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return r, nil
}

func (r *Registry) normalizeEntity(e *Entity) {
	if e.Table == "" {
		e.Table = r.namer.TableName(e.Name)
	}
	if e.PrimaryKey == "" {
		e.PrimaryKey = "id"
	}
	e.Fields = append([]Field(nil), e.Fields...)
	e.Associations = append([]Association(nil), e.Associations...)

	e.fieldIndex = make(map[string]int, len(e.Fields))
	for i := range e.Fields {
		f := &e.Fields[i]
		if f.Column == "" {
			f.Column = r.namer.ColumnName(f.Name)
		}
		f.Kind = sqltype.MapToKind(f.SQLType)
		if f.Kind == sqltype.Enum && len(f.EnumValues) == 0 {
			if values, err := parseEnumValues(f.SQLType); err == nil {
				f.EnumValues = values
			}
		}
		e.fieldIndex[f.Name] = i
	}

	e.assocIndex = make(map[string]int, len(e.Associations))
	for i := range e.Associations {
		a := &e.Associations[i]
		if a.Name == "" {
			a.Name = r.namer.AssociationName(a.Target, a.Kind == OneToMany)
			r.logger.Debug("derived association name",
				slog.String("entity", e.Name),
				slog.String("association", a.Name),
			)
		}
		switch a.Kind {
		case ManyToOne:
			if a.JoinColumn == "" {
				a.JoinColumn = r.namer.JoinColumnName(a.Name)
			}
		case OneToMany:
			if a.MappedBy == "" {
				a.MappedBy = r.namer.MappedByName(e.Name)
			}
		}
		e.assocIndex[a.Name] = i
	}
}

func (r *Registry) validateEntity(e *Entity) []error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: entity %s: %s", ErrInvalidMapping, e.Name, fmt.Sprintf(format, args...)))
	}

	if len(e.fieldIndex) != len(e.Fields) {
		fail("duplicate field names")
	}
	if len(e.assocIndex) != len(e.Associations) {
		fail("duplicate association names")
	}
	if _, ok := e.Field(e.PrimaryKey); !ok {
		fail("primary key field %q is not mapped", e.PrimaryKey)
	}
	columns := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		if f.SQLType == "" {
			fail("field %s has no type", f.Name)
		}
		if other, dup := columns[f.Column]; dup {
			fail("fields %s and %s share column %s", other, f.Name, f.Column)
		}
		columns[f.Column] = f.Name
	}

	for _, a := range e.Associations {
		if _, clash := e.Field(a.Name); clash {
			fail("association %s clashes with a field of the same name", a.Name)
		}
		target, ok := r.byName[a.Target]
		if !ok {
			fail("association %s targets unknown entity %q", a.Name, a.Target)
			continue
		}
		switch a.Kind {
		case ManyToOne:
			if other, dup := columns[a.JoinColumn]; dup {
				fail("association %s join column %s is also mapped by field %s", a.Name, a.JoinColumn, other)
			}
		case OneToMany:
			owner, ok := target.Association(a.MappedBy)
			if !ok || owner.Kind != ManyToOne || owner.Target != e.Name {
				fail("association %s is mapped by %s.%s which is not a many-to-one back to %s",
					a.Name, target.Name, a.MappedBy, e.Name)
			}
		default:
			fail("association %s has no kind", a.Name)
		}
	}
	return errs
}

// Entity returns the entity registered under name.
func (r *Registry) Entity(name string) (*Entity, error) {
	e, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, name)
	}
	return e, nil
}

// Entities returns all entities in registration order.
func (r *Registry) Entities() []*Entity {
	return append([]*Entity(nil), r.entities...)
}

// Namer returns the naming rules the registry was built with.
func (r *Registry) Namer() *naming.Namer {
	return r.namer
}

// Lookup resolves an association on entity to its target and the join columns
// that connect them. Local columns belong to entity's table, remote columns to
// the target's table.
func (r *Registry) Lookup(entity, association string) (*Entity, []JoinColumn, error) {
	e, err := r.Entity(entity)
	if err != nil {
		return nil, nil, err
	}
	a, ok := e.Association(association)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s.%s", ErrUnknownAssociation, entity, association)
	}
	target := r.byName[a.Target]

	switch a.Kind {
	case ManyToOne:
		return target, []JoinColumn{{
			Local:  a.JoinColumn,
			Remote: target.PrimaryKeyField().Column,
		}}, nil
	default:
		owner, _ := target.Association(a.MappedBy)
		return target, []JoinColumn{{
			Local:  e.PrimaryKeyField().Column,
			Remote: owner.JoinColumn,
		}}, nil
	}
}
