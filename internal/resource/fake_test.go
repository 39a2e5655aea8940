package resource

import (
	"context"

	"github.com/aanand-mishra/crudgen/internal/store"
)

// fakeModel is an in-memory store.Model with injectable failures.
type fakeModel struct {
	schema *store.Schema
	docs   map[string]store.Document
	order  []string

	findErr     error
	findByIDErr error
	insertErr   error
	saveErr     error
	deleteErr   error

	saved store.Document
}

func newFakeModel() *fakeModel {
	s, _ := store.NewSchema(nil)
	return &fakeModel{schema: s, docs: make(map[string]store.Document)}
}

func (m *fakeModel) Name() string          { return "Fake" }
func (m *fakeModel) Schema() *store.Schema { return m.schema }

func (m *fakeModel) Find(context.Context) ([]store.Document, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	out := make([]store.Document, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.docs[id].Clone())
	}
	return out, nil
}

func (m *fakeModel) FindByID(_ context.Context, id string) (store.Document, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	doc, ok := m.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return doc.Clone(), nil
}

func (m *fakeModel) Insert(_ context.Context, doc store.Document) (store.Document, error) {
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	doc = doc.Clone()
	if !store.ValidID(doc.ID()) {
		doc[store.IDKey] = store.NewID()
	}
	if _, ok := m.docs[doc.ID()]; ok {
		return nil, &store.Error{Code: store.CodeDuplicateKey, Model: "Fake", Field: store.IDKey}
	}
	m.put(doc)
	return doc, nil
}

func (m *fakeModel) Save(_ context.Context, doc store.Document) (store.Document, error) {
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	if _, ok := m.docs[doc.ID()]; !ok {
		return nil, store.ErrNotFound
	}
	m.saved = doc.Clone()
	m.docs[doc.ID()] = doc.Clone()
	return doc, nil
}

func (m *fakeModel) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.docs[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *fakeModel) put(doc store.Document) {
	if _, ok := m.docs[doc.ID()]; !ok {
		m.order = append(m.order, doc.ID())
	}
	m.docs[doc.ID()] = doc
}
