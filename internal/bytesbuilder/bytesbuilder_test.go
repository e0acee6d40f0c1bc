package bytesbuilder

import "testing"

func TestBuilderReserveBackpatch(t *testing.T) {
	b := New(8)
	b.PutByte(0xAA)
	off := b.Reserve(2)
	b.PutBytes([]byte{1, 2, 3})
	b.PutUint16At(off, uint16(len(b.ToBytes())))

	got := b.ToBytes()
	if len(got) != 1+2+3 {
		t.Fatalf("length = %d, want %d", len(got), 6)
	}
	if got[0] != 0xAA {
		t.Fatalf("leading byte = %x", got[0])
	}
}

func TestNullMaskDefaultsToNull(t *testing.T) {
	m := NewNullMask(10)
	for i := 0; i < 10; i++ {
		if !m.IsNull(i) {
			t.Fatalf("column %d should start null", i)
		}
	}
	m.MarkPresent(3)
	if m.IsNull(3) {
		t.Fatalf("column 3 should no longer be null")
	}
	if m.IsNull(4) == false {
		t.Fatalf("column 4 should remain null")
	}
}

func TestNullMaskSize(t *testing.T) {
	cases := map[int]int{1: 1, 7: 1, 8: 1, 9: 2, 16: 2, 17: 3}
	for cols, want := range cases {
		m := NewNullMask(cols)
		if m.Size() != want {
			t.Errorf("NewNullMask(%d).Size() = %d, want %d", cols, m.Size(), want)
		}
	}
}

func TestNullMaskBoolean(t *testing.T) {
	m := NewNullMask(4)
	m.SetBoolean(2, true)
	if !m.Bool(2) {
		t.Fatalf("expected column 2 true")
	}
	m.SetBoolean(2, false)
	if m.Bool(2) {
		t.Fatalf("expected column 2 false")
	}
}

func TestFromBytesRejectsShortInput(t *testing.T) {
	if _, err := FromBytes([]byte{0x00}, 100); err == nil {
		t.Fatalf("expected error for undersized mask")
	}
}
