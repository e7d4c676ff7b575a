package database

import "strings"

const keySeparator = ":"

// Query is the namespace used to build document keys.
type Query struct {
	prefix string
}

func NewQuery(prefix string) Query {
	return Query{prefix: strings.Trim(prefix, keySeparator)}
}

// Collection returns a reference to a named group of documents.
func (q Query) Collection(name string) Collection {
	return Collection{query: q, name: name}
}

type Collection struct {
	query Query
	name  string
}

// Key addresses the collection itself, e.g. a cached listing of all its documents.
func (c Collection) Key() string {
	if c.query.prefix == "" {
		return c.name
	}
	return c.query.prefix + keySeparator + c.name
}

// Ref addresses a single document of the collection.
func (c Collection) Ref(id string) string {
	return c.Key() + keySeparator + id
}
