package judge

import "testing"

func TestDefaultComparator_Identical(t *testing.T) {
	cmp := Default()
	cases := []struct {
		actual, expected IoBlock
	}{
		{nil, nil},
		{IoBlock{"abc"}, IoBlock{"abc"}},
		{IoBlock{"a", "b", "c"}, IoBlock{"a", "b", "c"}},
		{IoBlock{"abc", "def"}, IoBlock{"abc", "def"}},
	}
	for _, c := range cases {
		if !cmp.Evaluate(c.actual, c.expected) {
			t.Errorf("Evaluate(%v, %v) = false, want true", c.actual, c.expected)
		}
	}
}

func TestDefaultComparator_Strip(t *testing.T) {
	cmp := Default()
	if !cmp.Evaluate(IoBlock{" abc ", "  def   "}, IoBlock{"abc", "def"}) {
		t.Error("expected stripped actual to match bare expected")
	}
	if !cmp.Evaluate(IoBlock{"abc", "def"}, IoBlock{"   abc  ", " def "}) {
		t.Error("expected bare actual to match stripped expected")
	}
	if !cmp.Evaluate(IoBlock{" abc ", "  def   "}, IoBlock{"   abc  ", " def "}) {
		t.Error("expected both-stripped sides to match")
	}
}

func TestDefaultComparator_BadLines(t *testing.T) {
	cmp := Default()
	if cmp.Evaluate(nil, IoBlock{"abc"}) {
		t.Error("empty vs non-empty must not match")
	}
	if cmp.Evaluate(IoBlock{"abc"}, nil) {
		t.Error("non-empty vs empty must not match")
	}
	if cmp.Evaluate(IoBlock{"abc"}, IoBlock{"def"}) {
		t.Error("differing lines must not match")
	}
}

func TestDefaultComparator_BadChars(t *testing.T) {
	cmp := Default()
	if cmp.Evaluate(IoBlock{"a", "b", "c"}, IoBlock{"a", "b"}) {
		t.Error("differing length must not match")
	}
	if cmp.Evaluate(IoBlock{"a", "b"}, IoBlock{"a", "b", "c"}) {
		t.Error("differing length must not match")
	}
	if cmp.Evaluate(IoBlock{"a", "b", "c"}, IoBlock{"a", "b", "d"}) {
		t.Error("differing final line must not match")
	}
	if cmp.Evaluate(IoBlock{"a", "b", "cd"}, IoBlock{"a", "b", "c"}) {
		t.Error("differing line content must not match")
	}
}

func TestIdenticalComparator(t *testing.T) {
	cmp := Identical()

	if !cmp.Evaluate(nil, nil) {
		t.Error("empty vs empty must match")
	}
	if !cmp.Evaluate(IoBlock{"abc"}, IoBlock{"abc"}) {
		t.Error("equal single line must match")
	}
	if !cmp.Evaluate(IoBlock{"a", "b", "c"}, IoBlock{"a", "b", "c"}) {
		t.Error("equal multi-line must match")
	}

	if cmp.Evaluate(IoBlock{" abc ", "  def   "}, IoBlock{"abc", "def"}) {
		t.Error("identical comparator must not strip whitespace")
	}
	if cmp.Evaluate(nil, IoBlock{"abc"}) {
		t.Error("empty vs non-empty must not match")
	}
	if cmp.Evaluate(IoBlock{"a", "b", "c"}, IoBlock{"a", "b"}) {
		t.Error("differing length must not match")
	}
}

func TestFloatComparator_Identical(t *testing.T) {
	cmp := Float(DefaultFloatPrecision)
	cases := []struct {
		actual, expected IoBlock
	}{
		{nil, nil},
		{IoBlock{"123"}, IoBlock{"123"}},
		{IoBlock{"1", "2", "3"}, IoBlock{"1", "2", "3"}},
		{IoBlock{"123", "456"}, IoBlock{"123", "456"}},
	}
	for _, c := range cases {
		if !cmp.Evaluate(c.actual, c.expected) {
			t.Errorf("Evaluate(%v, %v) = false, want true", c.actual, c.expected)
		}
	}
}

func TestFloatComparator_Strip(t *testing.T) {
	cmp := Float(DefaultFloatPrecision)
	if !cmp.Evaluate(IoBlock{" 123 ", "  456   "}, IoBlock{"123", "456"}) {
		t.Error("expected stripped actual to match")
	}
	if !cmp.Evaluate(IoBlock{"123", "456"}, IoBlock{"   123  ", " 456 "}) {
		t.Error("expected stripped expected to match")
	}
}

func TestFloatComparator_BadLines(t *testing.T) {
	cmp := Float(DefaultFloatPrecision)
	if cmp.Evaluate(nil, IoBlock{"123"}) {
		t.Error("empty vs non-empty must not match")
	}
	if cmp.Evaluate(IoBlock{"123"}, nil) {
		t.Error("non-empty vs empty must not match")
	}
	if cmp.Evaluate(IoBlock{"123"}, IoBlock{"456"}) {
		t.Error("differing values must not match")
	}
}

func TestFloatComparator_BadChars(t *testing.T) {
	cmp := Float(DefaultFloatPrecision)
	if cmp.Evaluate(IoBlock{"1", "2", "3"}, IoBlock{"1", "2"}) {
		t.Error("differing length must not match")
	}
	if cmp.Evaluate(IoBlock{"1", "2"}, IoBlock{"1", "2", "3"}) {
		t.Error("differing length must not match")
	}
	if cmp.Evaluate(IoBlock{"1", "2", "3"}, IoBlock{"1", "2", "4"}) {
		t.Error("differing final value must not match")
	}
}

func TestFloatComparator_Rounding(t *testing.T) {
	cmp1 := Float(1)
	if !cmp1.Evaluate(IoBlock{"123.04"}, IoBlock{"123"}) {
		t.Error("123.04 should round to 123.0 at precision 1")
	}
	cmp2 := Float(2)
	if !cmp2.Evaluate(
		IoBlock{"1.23", "2.72", "3.14159265358"},
		IoBlock{"1.234", "2.71848", "3.14"},
	) {
		t.Error("values should agree at precision 2")
	}
	if cmp2.Evaluate(IoBlock{"123.04"}, IoBlock{"123"}) {
		t.Error("123.04 should not round to 123.00 at precision 2")
	}
	cmp3 := Float(3)
	if cmp3.Evaluate(
		IoBlock{"1.23", "2.72", "3.14159265358"},
		IoBlock{"1.234", "2.71848", "3.14"},
	) {
		t.Error("values should disagree at precision 3")
	}
}

func TestFloatComparator_BadStructure(t *testing.T) {
	cmp2 := Float(2)
	if !cmp2.Evaluate(
		IoBlock{"1.23 2.72 3.14159265358"},
		IoBlock{"1.234 2.71848 3.14"},
	) {
		t.Error("space-separated tokens on one line should still compare")
	}
	cmp3 := Float(3)
	if cmp3.Evaluate(
		IoBlock{"1.23 2.72 3.14159265358"},
		IoBlock{"1.234 2.71848 3.14"},
	) {
		t.Error("should disagree at precision 3")
	}
	if cmp2.Evaluate(
		IoBlock{"1.23 2.72 3.14159265358"},
		IoBlock{"1.234 2.71848"},
	) {
		t.Error("differing token counts must not match")
	}
}

func TestFloatComparator_NotFloat(t *testing.T) {
	cmp := Float(2)
	if cmp.Evaluate(
		IoBlock{"1.test 2.72 3.14159265358"},
		IoBlock{"1.234 2.71848 3.14"},
	) {
		t.Error("unparsable token must not match")
	}
}

func TestParseComparator(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"identical", "identical"},
		{"Default", "default"},
		{"", "default"},
		{"  FLOAT  ", "float"},
	}
	for _, c := range cases {
		got, err := ParseComparator(c.name)
		if err != nil {
			t.Fatalf("ParseComparator(%q) error: %v", c.name, err)
		}
		if got.String() != c.want {
			t.Errorf("ParseComparator(%q).String() = %q, want %q", c.name, got.String(), c.want)
		}
	}
}

func TestParseComparator_Unknown(t *testing.T) {
	_, err := ParseComparator("bogus")
	if err == nil {
		t.Fatal("expected error for unknown comparator")
	}
}
