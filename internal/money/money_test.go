package money

import "testing"

func TestParse_RoundTrip(t *testing.T) {
	m, err := Parse("100.00000000")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if m.String() != "100.00000000" {
		t.Fatalf("expected canonical 8-fractional form, got %q", m.String())
	}
}

func TestParse_RejectsInvalid(t *testing.T) {
	for _, s := range []string{"", "NaN", "Inf", "abc", "1e10x"} {
		if _, err := Parse(s); err == nil {
			t.Fatalf("expected error parsing %q", s)
		}
	}
}

func TestParse_PreservesEightFractionalDigits(t *testing.T) {
	m, err := Parse("0.00000001")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if m.IsZero() {
		t.Fatalf("expected nonzero epsilon")
	}
	if m.String() != "0.00000001" {
		t.Fatalf("got %q", m.String())
	}
}

func TestAddSub(t *testing.T) {
	a := MustParse("100.00000000")
	b := MustParse("0.00000001")

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if sum.String() != "100.00000001" {
		t.Fatalf("got %q", sum.String())
	}

	diff, err := sum.Sub(b)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if diff.Cmp(a) != 0 {
		t.Fatalf("expected round trip back to %q, got %q", a.String(), diff.String())
	}
}

func TestSub_CanGoNegative(t *testing.T) {
	zero := MustParse("0.00000000")
	epsilon := MustParse("0.00000001")

	diff, err := zero.Sub(epsilon)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !diff.IsNegative() {
		t.Fatalf("expected negative result")
	}
}

func TestGreaterThanOrEqual(t *testing.T) {
	balance := MustParse("100.00000000")
	required := MustParse("100.00000000")
	if !balance.GreaterThanOrEqual(required) {
		t.Fatalf("expected exact balance to satisfy >=")
	}

	justOver := MustParse("100.00000001")
	if balance.GreaterThanOrEqual(justOver) {
		t.Fatalf("expected balance to be insufficient against balance+epsilon")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	m := MustParse("12345.67890000")
	b, err := m.MarshalJSON()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	var back Money
	if err := back.UnmarshalJSON(b); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if back.Cmp(m) != 0 {
		t.Fatalf("expected round trip, got %q want %q", back.String(), m.String())
	}
}

func TestParse_OverflowBoundary(t *testing.T) {
	if _, err := Parse("100000000000.00000000"); err != nil {
		t.Fatalf("expected exactly 20 significant digits to parse, got err: %v", err)
	}
	if _, err := Parse("1000000000000.00000000"); err != ErrOverflow {
		t.Fatalf("expected ErrOverflow for 21 significant digits, got %v", err)
	}
}

func TestAdd_OverflowBoundary(t *testing.T) {
	a := MustParse("99999999999.00000000")
	b := MustParse("1.00000000")
	if _, err := a.Add(b); err != nil {
		t.Fatalf("expected exactly 20 significant digits to succeed, got err: %v", err)
	}

	a = MustParse("999999999999.00000000")
	if _, err := a.Add(b); err != ErrOverflow {
		t.Fatalf("expected ErrOverflow for 21 significant digits, got %v", err)
	}
}

func TestScanValue(t *testing.T) {
	m := MustParse("42.50000000")
	v, err := m.Value()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	var back Money
	if err := back.Scan(v); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if back.Cmp(m) != 0 {
		t.Fatalf("expected round trip, got %q", back.String())
	}
}
