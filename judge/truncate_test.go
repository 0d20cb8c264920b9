package judge

import (
	"reflect"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestTruncate_NoLimits(t *testing.T) {
	got := Truncate(IoBlock{"abc", "def"}, nil, nil)
	want := IoBlock{"abc", "def"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTruncate_UnderLimits(t *testing.T) {
	got := Truncate(IoBlock{"abc", "def"}, intPtr(72), nil)
	if !reflect.DeepEqual(got, IoBlock{"abc", "def"}) {
		t.Errorf("got %v, want unchanged", got)
	}

	got = Truncate(IoBlock{"abc", "def"}, nil, intPtr(3))
	if !reflect.DeepEqual(got, IoBlock{"abc", "def"}) {
		t.Errorf("got %v, want unchanged", got)
	}

	got = Truncate(IoBlock{"abc", "def"}, intPtr(6), intPtr(2))
	if !reflect.DeepEqual(got, IoBlock{"abc", "def"}) {
		t.Errorf("got %v, want unchanged", got)
	}
}

func TestTruncate_CharLimitSplitsLine(t *testing.T) {
	got := Truncate(IoBlock{"abc", "def"}, intPtr(4), nil)
	want := IoBlock{"abc", "d", TruncatedMarker}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTruncate_LineLimitStopsAtBoundary(t *testing.T) {
	got := Truncate(IoBlock{"abc", "def"}, nil, intPtr(1))
	want := IoBlock{"abc", TruncatedMarker}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTruncate_BothLimits(t *testing.T) {
	got := Truncate(IoBlock{"abc", "def"}, intPtr(6), intPtr(1))
	want := IoBlock{"abc", TruncatedMarker}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	got = Truncate(IoBlock{"abc", "def"}, intPtr(3), intPtr(2))
	want = IoBlock{"abc", "", TruncatedMarker}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTruncate_Idempotent(t *testing.T) {
	once := Truncate(IoBlock{"a", "b", "c", "d", "e"}, nil, intPtr(2))
	twice := Truncate(once, nil, intPtr(2))
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("truncating an already-truncated block changed it: %v -> %v", once, twice)
	}
}

func TestTruncate_EmptyInput(t *testing.T) {
	got := Truncate(nil, intPtr(4), intPtr(4))
	if len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}
