package envutil

import (
	"testing"
	"time"
)

func TestInt(t *testing.T) {
	t.Setenv("FLIGHTWX_TEST_INT", "7")
	if got := Int("FLIGHTWX_TEST_INT", 1); got != 7 {
		t.Fatalf("got %d", got)
	}
	t.Setenv("FLIGHTWX_TEST_INT", "nope")
	if got := Int("FLIGHTWX_TEST_INT", 1); got != 1 {
		t.Fatalf("got %d", got)
	}
}

func TestDuration(t *testing.T) {
	t.Setenv("FLIGHTWX_TEST_DUR", "250ms")
	if got := Duration("FLIGHTWX_TEST_DUR", time.Second); got != 250*time.Millisecond {
		t.Fatalf("got %v", got)
	}
	t.Setenv("FLIGHTWX_TEST_DUR", "3")
	if got := Duration("FLIGHTWX_TEST_DUR", time.Second); got != 3*time.Second {
		t.Fatalf("got %v", got)
	}
	t.Setenv("FLIGHTWX_TEST_DUR", "")
	if got := Duration("FLIGHTWX_TEST_DUR", time.Second); got != time.Second {
		t.Fatalf("got %v", got)
	}
}

func TestBoolAndString(t *testing.T) {
	t.Setenv("FLIGHTWX_TEST_BOOL", "yes")
	if !Bool("FLIGHTWX_TEST_BOOL", false) {
		t.Fatalf("expected true")
	}
	t.Setenv("FLIGHTWX_TEST_STR", "  x ")
	if got := String("FLIGHTWX_TEST_STR", "d"); got != "x" {
		t.Fatalf("got %q", got)
	}
}

func TestFloat(t *testing.T) {
	t.Setenv("FLIGHTWX_TEST_FLOAT", "0.25")
	if got := Float("FLIGHTWX_TEST_FLOAT", 1); got != 0.25 {
		t.Fatalf("got %v", got)
	}
	t.Setenv("FLIGHTWX_TEST_FLOAT", "lots")
	if got := Float("FLIGHTWX_TEST_FLOAT", 1); got != 1 {
		t.Fatalf("got %v", got)
	}
}
