package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// QueryOp is the comparison used by DocumentStore.Query.
type QueryOp string

const (
	OpEquals        QueryOp = "=="
	OpArrayContains QueryOp = "array-contains"
)

// Fields is the JSON-natural representation of a stored document
// (strings, float64, bool, []any, map[string]any, nil).
type Fields map[string]any

// Document is a stored record together with its store-assigned id.
type Document struct {
	ID     string
	Fields Fields
}

// DocumentStore is the content store port. Implementations must make every
// single-document Update atomic: concurrent readers observe either the old or
// the new document, never a mix of the two.
type DocumentStore interface {
	// Get returns the document or an error wrapping ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)

	// List returns every document of the collection ordered by id.
	List(ctx context.Context, collection string) ([]Document, error)

	// Query returns documents whose field matches value under op, ordered by id.
	Query(ctx context.Context, collection, field string, op QueryOp, value any) ([]Document, error)

	// Create stores data under a new id and returns it.
	Create(ctx context.Context, collection string, data Fields) (string, error)

	// Update merges partial into an existing document. Returns an error
	// wrapping ErrNotFound if the document does not exist.
	Update(ctx context.Context, collection, id string, partial Fields) error

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
}

// EncodeFields converts a struct (or map) into Fields through its JSON form.
// The "id" key is dropped because ids live outside the document body.
func EncodeFields(v any) (Fields, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document fields: %w", err)
	}
	var f Fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document fields: %w", err)
	}
	delete(f, "id")
	return f, nil
}

// Decode fills v from the document body, with the document id under "id".
func (d Document) Decode(v any) error {
	body := make(Fields, len(d.Fields)+1)
	for k, val := range d.Fields {
		body[k] = val
	}
	body["id"] = d.ID
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", d.ID, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode document %s: %w", d.ID, err)
	}
	return nil
}

// DecodeAll decodes every document into a new T.
func DecodeAll[T any](docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var item T
		if err := doc.Decode(&item); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// NormalizeValue converts a Go value into its JSON-natural form so that it
// compares equal to values read back from a store.
func NormalizeValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize query value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to normalize query value: %w", err)
	}
	return out, nil
}

// Clone returns a deep copy of f.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

// Merge returns a copy of f with partial applied on top.
func (f Fields) Merge(partial Fields) Fields {
	out := f.Clone()
	if out == nil {
		out = make(Fields, len(partial))
	}
	for k, v := range partial {
		out[k] = cloneValue(v)
	}
	return out
}

// Matches evaluates a store query against f. value must already be normalized.
func (f Fields) Matches(field string, op QueryOp, value any) bool {
	current, ok := f[field]
	if !ok {
		return false
	}
	switch op {
	case OpEquals:
		return reflect.DeepEqual(current, value)
	case OpArrayContains:
		items, ok := current.([]any)
		if !ok {
			return false
		}
		for _, item := range items {
			if reflect.DeepEqual(item, value) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// SortDocuments orders docs by id in place.
func SortDocuments(docs []Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(Fields(t).Clone())
	case Fields:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
