package registry

import (
	"sync"
	"testing"
)

// testItem is a simple struct for testing
type testItem struct {
	ID   string
	Name string
}

func TestBaseRegistry_Register(t *testing.T) {
	registry := NewBaseRegistry[testItem]()

	tests := []struct {
		name    string
		item    testItem
		wantErr bool
	}{
		{
			name:    "register valid item",
			item:    testItem{ID: "test-1", Name: "Test Item 1"},
			wantErr: false,
		},
		{
			name:    "register item with empty name",
			item:    testItem{ID: "", Name: "Test Item"},
			wantErr: true,
		},
		{
			name:    "register duplicate item",
			item:    testItem{ID: "test-1", Name: "Test Item 2"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := registry.Register(tt.item.ID, tt.item)
			if (err != nil) != tt.wantErr {
				t.Errorf("BaseRegistry.Register() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBaseRegistry_Get(t *testing.T) {
	registry := NewBaseRegistry[testItem]()

	item := testItem{ID: "test-1", Name: "Test Item 1"}
	if err := registry.Register("test-1", item); err != nil {
		t.Fatalf("Failed to register test item: %v", err)
	}

	got, ok := registry.Get("test-1")
	if !ok || got != item {
		t.Errorf("Get() = %v, %v, want %v, true", got, ok, item)
	}

	if _, ok := registry.Get("missing"); ok {
		t.Error("Get() for missing item returned ok")
	}
}

func TestBaseRegistry_GetOrRegister(t *testing.T) {
	registry := NewBaseRegistry[*testItem]()

	created := 0
	create := func() *testItem {
		created++
		return &testItem{ID: "shared"}
	}

	first, existed := registry.GetOrRegister("shared", create)
	if existed {
		t.Error("GetOrRegister() reported existing on first call")
	}
	second, existed := registry.GetOrRegister("shared", create)
	if !existed {
		t.Error("GetOrRegister() did not report existing on second call")
	}
	if first != second {
		t.Error("GetOrRegister() returned different items for the same name")
	}
	if created != 1 {
		t.Errorf("create ran %d times, want 1", created)
	}
}

func TestBaseRegistry_GetOrRegister_Concurrent(t *testing.T) {
	registry := NewBaseRegistry[*testItem]()

	var mu sync.Mutex
	created := 0

	const n = 32
	results := make([]*testItem, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			item, _ := registry.GetOrRegister("shared", func() *testItem {
				mu.Lock()
				created++
				mu.Unlock()
				return &testItem{ID: "shared"}
			})
			results[i] = item
		}(i)
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("create ran %d times, want 1", created)
	}
	for i := 1; i < n; i++ {
		if results[i] != results[0] {
			t.Fatalf("caller %d observed a different item", i)
		}
	}
}

func TestBaseRegistry_RemoveAndClear(t *testing.T) {
	registry := NewBaseRegistry[testItem]()

	if err := registry.Remove("missing"); err == nil {
		t.Error("Remove() of missing item did not error")
	}

	_ = registry.Register("a", testItem{ID: "a"})
	_ = registry.Register("b", testItem{ID: "b"})
	if registry.Count() != 2 {
		t.Errorf("Count() = %d, want 2", registry.Count())
	}

	if err := registry.Remove("a"); err != nil {
		t.Errorf("Remove() error = %v", err)
	}
	if registry.Count() != 1 {
		t.Errorf("Count() after remove = %d, want 1", registry.Count())
	}

	registry.Clear()
	if registry.Count() != 0 {
		t.Errorf("Count() after clear = %d, want 0", registry.Count())
	}
}
