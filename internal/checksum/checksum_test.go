package checksum

import "testing"

func TestSum(t *testing.T) {
	// sha256("abc")
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := SumString("abc"); got != want {
		t.Errorf("SumString(abc) = %q, want %q", got, want)
	}
	if Sum([]byte("abc")) != SumString("abc") {
		t.Error("Sum and SumString disagree")
	}
}

func TestEqual(t *testing.T) {
	a := SumString("rk_live_one")
	if !Equal(a, SumString("rk_live_one")) {
		t.Error("equal digests reported different")
	}
	if Equal(a, SumString("rk_live_two")) {
		t.Error("different digests reported equal")
	}
}
