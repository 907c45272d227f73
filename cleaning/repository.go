/*
repository.go - Generic CRUD over the reference entity collections

PURPOSE:
  One typed repository per entity kind. The set of kinds is closed and
  fixed at compile time (Repositories), so there is no runtime dispatch on
  a type string and no "invalid type" failure path.

OPERATIONS:
  All     every item, storage insertion order
  Get     one item (NotFoundError)
  Add     validate, persist, return with the store-generated id
  Update  sparse field set: nil values dropped, unknown keys rejected,
          merged result validated before the write, merged item returned
  Delete  NotFoundError on a missing id; never cascades

VALIDATION:
  Intra-entity only (validate tags in types.go). A unit pointing at a
  building that does not exist is accepted.

SEE ALSO:
  - types.go: Entity definitions and their document fields
  - jobs.go: Jobs have their own adapter (estimation, recurrence)
*/
package cleaning

import (
	"context"
	"fmt"

	"github.com/alexisbanda/operations-management-system/docstore"
)

// =============================================================================
// ENTITY KINDS
// =============================================================================

// Kind names an entity collection.
type Kind string

const (
	KindClients   Kind = "clients"
	KindBuildings Kind = "buildings"
	KindUnits     Kind = "units"
	KindEmployees Kind = "employees"
	KindTeams     Kind = "teams"
)

// Kinds lists every entity kind handled by the generic repository.
var Kinds = []Kind{KindClients, KindBuildings, KindUnits, KindEmployees, KindTeams}

func (k Kind) singular() string {
	switch k {
	case KindClients:
		return "client"
	case KindBuildings:
		return "building"
	case KindUnits:
		return "unit"
	case KindEmployees:
		return "employee"
	case KindTeams:
		return "team"
	}
	return string(k)
}

// record is satisfied by pointers to the entity structs.
type record[T any] interface {
	*T
	fields() docstore.Fields
	setID(id string)
}

// =============================================================================
// REPOSITORY
// =============================================================================

// Repository provides CRUD for one entity kind.
type Repository[T any, P record[T]] struct {
	store docstore.Store
	kind  Kind
}

func NewRepository[T any, P record[T]](store docstore.Store, kind Kind) *Repository[T, P] {
	return &Repository[T, P]{store: store, kind: kind}
}

// Kind returns the collection served by r.
func (r *Repository[T, P]) Kind() Kind { return r.kind }

func (r *Repository[T, P]) All(ctx context.Context) ([]T, error) {
	docs, err := r.store.List(ctx, string(r.kind))
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		var item T
		if err := decodeDocument(doc, &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Repository[T, P]) Get(ctx context.Context, id string) (T, error) {
	var item T
	doc, err := r.store.Get(ctx, string(r.kind), id)
	if err != nil {
		return item, notFound(r.kind.singular(), id, err)
	}
	if err := decodeDocument(doc, &item); err != nil {
		return item, err
	}
	return item, nil
}

// Add persists item and returns it with its generated id. Any id already
// set on item is ignored.
func (r *Repository[T, P]) Add(ctx context.Context, item T) (T, error) {
	if err := validateStruct(item); err != nil {
		return item, err
	}
	id, err := r.store.Add(ctx, string(r.kind), P(&item).fields())
	if err != nil {
		return item, err
	}
	P(&item).setID(id)
	return item, nil
}

// Update applies a sparse field set and returns the merged item.
func (r *Repository[T, P]) Update(ctx context.Context, id string, patch docstore.Fields) (T, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return current, err
	}

	clean, err := r.normalizePatch(patch)
	if err != nil {
		return current, err
	}
	if len(clean) == 0 {
		return current, nil
	}

	merged := P(&current).fields()
	merged.Merge(clean)
	var next T
	if err := decodeDocument(docstore.Document{ID: id, Fields: merged}, &next); err != nil {
		return current, err
	}
	if err := validateStruct(next); err != nil {
		return current, err
	}

	if err := r.store.Update(ctx, string(r.kind), id, clean); err != nil {
		return current, notFound(r.kind.singular(), id, err)
	}
	return next, nil
}

func (r *Repository[T, P]) Delete(ctx context.Context, id string) error {
	return notFound(r.kind.singular(), id, r.store.Delete(ctx, string(r.kind), id))
}

// normalizePatch drops nil values, rejects unknown or mistyped keys and
// re-encodes the remaining values in their canonical stored form.
func (r *Repository[T, P]) normalizePatch(patch docstore.Fields) (docstore.Fields, error) {
	supplied := docstore.Fields{}
	for k, v := range patch {
		if v == nil {
			continue
		}
		if k == "id" {
			return nil, invalid("id", "cannot be changed")
		}
		supplied[k] = v
	}
	if len(supplied) == 0 {
		return supplied, nil
	}

	var partial T
	keys, err := decodeFields(supplied, &partial, true)
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("%s patch: %v", r.kind.singular(), err)}
	}
	canonical := P(&partial).fields()
	clean := make(docstore.Fields, len(keys))
	for _, k := range keys {
		if v, ok := canonical[k]; ok {
			clean[k] = v
		}
	}
	return clean, nil
}

// =============================================================================
// REPOSITORY SET
// =============================================================================

// Repositories holds one typed repository per entity kind.
type Repositories struct {
	Clients   *Repository[Client, *Client]
	Buildings *Repository[Building, *Building]
	Units     *Repository[Unit, *Unit]
	Employees *Repository[Employee, *Employee]
	Teams     *Repository[Team, *Team]
}

func NewRepositories(store docstore.Store) *Repositories {
	return &Repositories{
		Clients:   NewRepository[Client](store, KindClients),
		Buildings: NewRepository[Building](store, KindBuildings),
		Units:     NewRepository[Unit](store, KindUnits),
		Employees: NewRepository[Employee](store, KindEmployees),
		Teams:     NewRepository[Team](store, KindTeams),
	}
}
