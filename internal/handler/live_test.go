package handler

import "testing"

type fakeScreen struct{ closed int }

func (s *fakeScreen) Close() { s.closed++ }

func TestKeyed_EvictsLeastRecentlyUsed(t *testing.T) {
	k := newKeyed[*fakeScreen](2)
	a, b, c, d := &fakeScreen{}, &fakeScreen{}, &fakeScreen{}, &fakeScreen{}

	k.put("a", a)
	k.put("b", b)
	k.put("a", a)
	if a.closed != 0 {
		t.Fatal("re-putting a key must not evict it")
	}
	k.put("c", c)

	if b.closed != 1 || a.closed != 0 {
		t.Fatalf("b was least recently used, got a=%d b=%d", a.closed, b.closed)
	}
	if _, ok := k.get("b"); ok {
		t.Fatal("evicted screen still cached")
	}

	// A read counts as use.
	if got, ok := k.get("a"); !ok || got != a {
		t.Fatal("a missing")
	}
	k.put("d", d)
	if c.closed != 1 || a.closed != 0 {
		t.Fatalf("c should go before the just-read a, got a=%d c=%d", a.closed, c.closed)
	}

	k.closeAll()
	if a.closed != 1 || d.closed != 1 {
		t.Fatalf("closeAll should close every screen, got a=%d d=%d", a.closed, d.closed)
	}
	if _, ok := k.get("a"); ok {
		t.Fatal("cache not emptied")
	}
}
