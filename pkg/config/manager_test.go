package config

import (
	"fmt"
	"sync"
	"testing"
)

// mockSection is a test implementation of the Section interface
type mockSection struct {
	id          string
	data        map[string]any
	validateErr error
	setErr      error
}

func (m *mockSection) ID() string           { return m.id }
func (m *mockSection) Title() string        { return m.id }
func (m *mockSection) Description() string  { return "" }
func (m *mockSection) Data() map[string]any { return m.data }
func (m *mockSection) Validate() error      { return m.validateErr }
func (m *mockSection) Reset()               { m.data = make(map[string]any) }

func (m *mockSection) SetData(data map[string]any) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data = data
	return nil
}

// mockStore is a test implementation of the Store interface
type mockStore struct {
	sections map[string]map[string]any
	loadErr  error
	saveErr  error
	saves    int
}

func newMockStore() *mockStore {
	return &mockStore{sections: make(map[string]map[string]any)}
}

func (m *mockStore) Load() error { return m.loadErr }

func (m *mockStore) Save() error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	return nil
}

func (m *mockStore) GetSection(sectionID string) (map[string]any, error) {
	return m.sections[sectionID], nil
}

func (m *mockStore) SetSection(sectionID string, data map[string]any) error {
	m.sections[sectionID] = data
	return nil
}

func (m *mockStore) GetAll() (map[string]map[string]any, error) { return m.sections, nil }

func (m *mockStore) SetAll(data map[string]map[string]any) error {
	m.sections = data
	return nil
}

func TestManager_RegisterSection(t *testing.T) {
	t.Run("keeps registration order", func(t *testing.T) {
		store := newMockStore()
		manager := NewManager(store)
		if manager.Store() != store {
			t.Error("Manager does not reference correct store")
		}

		for _, id := range []string{"first", "second", "third"} {
			if err := manager.RegisterSection(&mockSection{id: id}); err != nil {
				t.Fatalf("RegisterSection(%s) failed: %v", id, err)
			}
		}

		sections := manager.GetSections()
		if len(sections) != 3 {
			t.Fatalf("Expected 3 sections, got %d", len(sections))
		}
		if sections[0].ID() != "first" || sections[1].ID() != "second" || sections[2].ID() != "third" {
			t.Error("Sections not in registration order")
		}
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		manager := NewManager(newMockStore())
		if err := manager.RegisterSection(&mockSection{id: "dup"}); err != nil {
			t.Fatalf("First registration failed: %v", err)
		}
		if err := manager.RegisterSection(&mockSection{id: "dup"}); err == nil {
			t.Error("Expected error for duplicate registration")
		}
	})

	t.Run("lookup of unknown id", func(t *testing.T) {
		manager := NewManager(newMockStore())
		if _, ok := manager.GetSection("missing"); ok {
			t.Error("Should return false for non-existent section")
		}
	})
}

func TestManager_LoadAll(t *testing.T) {
	t.Run("applies stored data", func(t *testing.T) {
		store := newMockStore()
		store.sections["a"] = map[string]any{"key": "value"}

		manager := NewManager(store)
		a := &mockSection{id: "a"}
		b := &mockSection{id: "b", data: map[string]any{"default": true}}
		manager.RegisterSection(a)
		manager.RegisterSection(b)

		if err := manager.LoadAll(); err != nil {
			t.Fatalf("LoadAll failed: %v", err)
		}
		if a.data["key"] != "value" {
			t.Error("Section data not loaded")
		}
		if b.data["default"] != true {
			t.Error("Section without stored data should keep its defaults")
		}
	})

	t.Run("propagates store errors", func(t *testing.T) {
		store := newMockStore()
		store.loadErr = fmt.Errorf("load error")
		if err := NewManager(store).LoadAll(); err == nil {
			t.Error("Expected error from store")
		}
	})

	t.Run("propagates section errors", func(t *testing.T) {
		store := newMockStore()
		store.sections["a"] = map[string]any{"key": 1}
		manager := NewManager(store)
		manager.RegisterSection(&mockSection{id: "a", setErr: fmt.Errorf("bad data")})

		if err := manager.LoadAll(); err == nil {
			t.Error("Expected error from SetData")
		}
	})
}

func TestManager_SaveAll(t *testing.T) {
	t.Run("writes every section", func(t *testing.T) {
		store := newMockStore()
		manager := NewManager(store)
		manager.RegisterSection(&mockSection{id: "a", data: map[string]any{"k1": "v1"}})
		manager.RegisterSection(&mockSection{id: "b", data: map[string]any{"k2": "v2"}})

		if err := manager.SaveAll(); err != nil {
			t.Fatalf("SaveAll failed: %v", err)
		}
		if store.sections["a"]["k1"] != "v1" || store.sections["b"]["k2"] != "v2" {
			t.Error("Section data not saved")
		}
		if store.saves != 1 {
			t.Errorf("Expected 1 store save, got %d", store.saves)
		}
	})

	t.Run("validates before writing anything", func(t *testing.T) {
		store := newMockStore()
		manager := NewManager(store)
		manager.RegisterSection(&mockSection{id: "ok", data: map[string]any{"k": "v"}})
		manager.RegisterSection(&mockSection{id: "bad", validateErr: fmt.Errorf("invalid")})

		if err := manager.SaveAll(); err == nil {
			t.Error("Expected validation error")
		}
		if _, written := store.sections["ok"]; written {
			t.Error("No section should be written when validation fails")
		}
	})

	t.Run("propagates store errors", func(t *testing.T) {
		store := newMockStore()
		store.saveErr = fmt.Errorf("save error")
		manager := NewManager(store)
		manager.RegisterSection(&mockSection{id: "a"})

		if err := manager.SaveAll(); err == nil {
			t.Error("Expected error from store")
		}
	})
}

func TestManager_ResetAll(t *testing.T) {
	manager := NewManager(newMockStore())
	a := &mockSection{id: "a", data: map[string]any{"k": "v"}}
	manager.RegisterSection(a)

	manager.ResetAll()
	if len(a.data) != 0 {
		t.Error("Section not reset")
	}
}

func TestManager_Concurrency(t *testing.T) {
	manager := NewManager(newMockStore())
	manager.RegisterSection(&mockSection{id: "test"})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			manager.GetSection("test")
			manager.GetSections()
		}()
		go func(i int) {
			defer wg.Done()
			manager.RegisterSection(&mockSection{id: fmt.Sprintf("s%d", i)})
		}(i)
	}
	wg.Wait()

	if n := len(manager.GetSections()); n != 11 {
		t.Errorf("Expected 11 sections, got %d", n)
	}
}
