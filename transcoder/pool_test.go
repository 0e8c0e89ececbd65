package transcoder

import "testing"

func TestVectorPoolReuse(t *testing.T) {
	var pool VectorPool[any]

	v := pool.Get(3)
	if len(v) != 3 {
		t.Fatalf("Get(3) len = %d", len(v))
	}
	v[0], v[1], v[2] = "a", "b", "c"
	pool.Put(v)

	w := pool.Get(2)
	if len(w) != 2 {
		t.Fatalf("Get(2) len = %d", len(w))
	}
	for i, x := range w {
		if x != nil {
			t.Errorf("recycled vector slot %d not cleared: %v", i, x)
		}
	}
}

func TestVectorPoolGrowth(t *testing.T) {
	var pool VectorPool[int64]

	small := pool.Get(2)
	pool.Put(small)

	big := pool.Get(64)
	if len(big) != 64 {
		t.Fatalf("Get(64) len = %d", len(big))
	}
}

func TestVectorPoolRejectsOversized(t *testing.T) {
	var pool VectorPool[byte]

	huge := make([]byte, poolMaxCap+1)
	pool.Put(huge)

	// Must not panic and must still serve correct lengths.
	v := pool.Get(4)
	if len(v) != 4 {
		t.Fatalf("Get(4) len = %d", len(v))
	}
}
