package signals

import "testing"

func TestFlagSetClear(t *testing.T) {
	var f Flag
	if f.IsSet() {
		t.Fatalf("zero-value flag must read false")
	}
	f.Set()
	if !f.IsSet() {
		t.Fatalf("flag not set after Set")
	}
	f.Set()
	if !f.IsSet() {
		t.Fatalf("repeated Set must keep the flag set")
	}
	f.Clear()
	if f.IsSet() {
		t.Fatalf("flag still set after Clear")
	}
}

func TestAnySet(t *testing.T) {
	var a, b Flag
	if AnySet(&a, &b) {
		t.Fatalf("AnySet true with no flags set")
	}
	b.Set()
	if !AnySet(&a, &b) {
		t.Fatalf("AnySet false with one flag set")
	}
	a.Set()
	b.Clear()
	if !AnySet(&a, &b) {
		t.Fatalf("AnySet false with the other flag set")
	}
	if AnySet() {
		t.Fatalf("AnySet with no arguments must be false")
	}
}
