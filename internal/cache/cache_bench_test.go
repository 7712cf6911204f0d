package cache

import (
	"strconv"
	"testing"
	"time"
)

func BenchmarkCacheOperations(b *testing.B) {
	c := NewCache(time.Hour)

	b.Run("Set", func(b *testing.B) {
		b.ReportAllocs()
		for b.Loop() {
			c.Set("key", "value")
		}
	})

	b.Run("Get", func(b *testing.B) {
		c.Set("key", "value")
		b.ReportAllocs()
		for b.Loop() {
			_, _ = c.Get("key")
		}
	})

	b.Run("GetOrCreate", func(b *testing.B) {
		create := func() any { return "value" }
		b.ReportAllocs()
		for b.Loop() {
			c.GetOrCreate("key", create)
		}
	})
}

func BenchmarkCacheDeletePrefix(b *testing.B) {
	b.ReportAllocs()
	for range b.N {
		b.StopTimer()
		c := NewCache(time.Hour)
		for i := range 100 {
			c.Set("codeview:s1:"+strconv.Itoa(i), i)
			c.Set("codeview:s2:"+strconv.Itoa(i), i)
		}
		b.StartTimer()
		c.DeletePrefix("codeview:s1:")
	}
}
