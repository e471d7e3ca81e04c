package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestNewMemory(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	if c == nil {
		t.Fatal("NewMemory() returned nil")
	}
	if c.items == nil {
		t.Fatal("NewMemory() returned cache with nil items map")
	}
	if c.ttl != time.Minute {
		t.Errorf("NewMemory() ttl = %v, want %v", c.ttl, time.Minute)
	}
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)
	defer c.Stop()

	c.Set(ctx, "key1", []byte("value1"))

	got, ok := c.Get(ctx, "key1")
	if !ok {
		t.Error("Get() returned false for existing key")
	}
	if string(got) != "value1" {
		t.Errorf("Get() = %q, want %q", got, "value1")
	}
}

func TestMemoryCache_Get_NotFound(t *testing.T) {
	c := NewMemory(time.Minute)
	defer c.Stop()

	got, ok := c.Get(context.Background(), "nonexistent")
	if ok {
		t.Error("Get() should return false for non-existent key")
	}
	if got != nil {
		t.Errorf("Get() should return nil for non-existent key, got %v", got)
	}
}

func TestMemoryCache_Get_Expired(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(50 * time.Millisecond)
	defer c.Stop()

	c.Set(ctx, "key1", []byte("value1"))

	if _, ok := c.Get(ctx, "key1"); !ok {
		t.Error("Get() should return true for fresh key")
	}

	time.Sleep(60 * time.Millisecond)

	if _, ok := c.Get(ctx, "key1"); ok {
		t.Error("Get() should return false for expired key")
	}
}

func TestMemoryCache_SetWithTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)
	defer c.Stop()

	c.SetWithTTL(ctx, "key1", []byte("value1"), 50*time.Millisecond)

	if _, ok := c.Get(ctx, "key1"); !ok {
		t.Error("Get() should return true for fresh key")
	}

	time.Sleep(60 * time.Millisecond)

	if _, ok := c.Get(ctx, "key1"); ok {
		t.Error("Get() should return false after custom TTL expired")
	}
}

func TestMemoryCache_SetWithTTL_LongerThanDefault(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(50 * time.Millisecond)
	defer c.Stop()

	c.SetWithTTL(ctx, "key1", []byte("value1"), time.Minute)

	time.Sleep(60 * time.Millisecond)

	if _, ok := c.Get(ctx, "key1"); !ok {
		t.Error("Get() should return true when custom TTL hasn't expired")
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)
	defer c.Stop()

	c.Set(ctx, "key1", []byte("value1"))
	c.Delete(ctx, "key1")
	c.Delete(ctx, "nonexistent")

	if _, ok := c.Get(ctx, "key1"); ok {
		t.Error("Get() should return false after Delete()")
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)
	defer c.Stop()

	for _, key := range []string{"key1", "key2", "key3"} {
		c.Set(ctx, key, []byte(key))
	}

	c.Clear(ctx)

	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear(), want 0", c.Len())
	}
}

func TestMemoryCache_StoresCopy(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)
	defer c.Stop()

	value := []byte("abc")
	c.Set(ctx, "key", value)
	value[0] = 'z'

	got, _ := c.Get(ctx, "key")
	if string(got) != "abc" {
		t.Errorf("Get() = %q, caller mutation leaked into cache", got)
	}
}

func TestMemoryCache_JanitorRemovesExpired(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryWithCleanup(10*time.Millisecond, 5*time.Millisecond)
	defer c.Stop()

	c.Set(ctx, "key1", []byte("v"))

	deadline := time.Now().Add(time.Second)
	for c.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.Len() != 0 {
		t.Error("janitor did not remove expired entry")
	}
}

func TestMemoryCache_StopLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := NewMemoryWithCleanup(time.Minute, time.Millisecond)
	c.Stop()
	c.Stop()
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)
	defer c.Stop()

	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set(ctx, "shared-key", []byte(fmt.Sprint(idx*100+j)))
			}
		}(i)
	}

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Get(ctx, "shared-key")
			}
		}()
	}

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				c.Delete(ctx, "shared-key")
				time.Sleep(time.Millisecond)
			}
		}()
	}

	wg.Wait()
}

func TestMemoryCache_NilValue(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)
	defer c.Stop()

	c.Set(ctx, "nil-key", nil)

	got, ok := c.Get(ctx, "nil-key")
	if !ok {
		t.Error("Get() should return true for key with nil value")
	}
	if len(got) != 0 {
		t.Errorf("Get() should return an empty value, got %v", got)
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)
	defer c.Stop()

	type item struct {
		Name  string
		Price float64
	}

	if err := SetJSON(ctx, c, "items", []item{{"Soap", 2.5}}, 0); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}

	got, ok := GetJSON[[]item](ctx, c, "items")
	if !ok {
		t.Fatal("GetJSON() reported a miss")
	}
	if len(got) != 1 || got[0].Name != "Soap" || got[0].Price != 2.5 {
		t.Errorf("GetJSON() = %+v", got)
	}

	c.Set(ctx, "broken", []byte("{"))
	if _, ok := GetJSON[[]item](ctx, c, "broken"); ok {
		t.Error("GetJSON() should miss on undecodable data")
	}

	if _, ok := GetJSON[[]item](ctx, nil, "items"); ok {
		t.Error("GetJSON() on nil cache should miss")
	}
	if err := SetJSON(ctx, nil, "items", 1, 0); err != nil {
		t.Errorf("SetJSON() on nil cache error = %v", err)
	}
}

func TestJSONHelpers_CustomTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)
	defer c.Stop()

	if err := SetJSON(ctx, c, "k", "v", 20*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, ok := GetJSON[string](ctx, c, "k"); ok {
		t.Error("value should expire with the explicit TTL")
	}
}

func TestMemoryCache_ImplementsInterface(t *testing.T) {
	var _ Cache = (*MemoryCache)(nil)
	var _ Cache = (*RedisCache)(nil)
}
