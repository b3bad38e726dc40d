package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := NewPrices()

	if _, ok := c.Get("AAPL"); ok {
		t.Fatalf("empty cache returned a price")
	}

	c.Set("AAPL", 184.25)
	got, ok := c.Get("AAPL")
	if !ok || got != 184.25 {
		t.Fatalf("Get=(%v,%v), expected (184.25,true)", got, ok)
	}

	c.Set("AAPL", 185.00)
	if got, _ := c.Get("AAPL"); got != 185.00 {
		t.Fatalf("Get=%v after overwrite, expected 185.00", got)
	}
}

func TestGetWithAge(t *testing.T) {
	c := NewPrices()
	c.Set("AAPL", 184.25)

	price, age, ok := c.GetWithAge("AAPL")
	if !ok || price != 184.25 {
		t.Fatalf("GetWithAge=(%v,%v,%v)", price, age, ok)
	}
	if age < 0 || age > time.Second {
		t.Fatalf("age=%v, expected fresh entry", age)
	}
}

func TestCleanupDropsStaleEntries(t *testing.T) {
	c := NewPrices()
	c.Set("AAPL", 184.25)

	time.Sleep(10 * time.Millisecond)
	c.Set("MSFT", 430.00)

	removed := c.Cleanup(5 * time.Millisecond)
	if removed != 1 {
		t.Fatalf("removed=%d, expected 1", removed)
	}
	if _, ok := c.Get("AAPL"); ok {
		t.Fatalf("stale entry survived cleanup")
	}
	if _, ok := c.Get("MSFT"); !ok {
		t.Fatalf("fresh entry removed by cleanup")
	}
}

func TestLenAndSnapshotAcrossShards(t *testing.T) {
	c := NewPrices()
	for i := 0; i < 100; i++ {
		c.Set(fmt.Sprintf("SYM%d", i), float64(i))
	}

	if c.Len() != 100 {
		t.Fatalf("Len=%d, expected 100", c.Len())
	}
	snap := c.Snapshot()
	if len(snap) != 100 || snap["SYM42"] != 42 {
		t.Fatalf("snapshot wrong: len=%d SYM42=%v", len(snap), snap["SYM42"])
	}
}
