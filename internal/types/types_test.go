package types

import "testing"

func TestScalarSingletonsAreCanonical(t *testing.T) {
	in := NewInterner()
	if in.Bool() != in.Bool() {
		t.Fatalf("Bool() should return the same canonical handle every call")
	}
	a, ok := in.APInt(false, 3)
	if !ok {
		t.Fatalf("APInt(false, 3) should succeed")
	}
	b, ok := in.APInt(false, 3)
	if !ok {
		t.Fatalf("APInt(false, 3) should succeed")
	}
	if a != b {
		t.Fatalf("interning APInt(false, 3) twice returned distinct handles")
	}
}

func TestAPIntWidthBounds(t *testing.T) {
	in := NewInterner()
	if _, ok := in.APInt(true, 1); ok {
		t.Fatalf("width 1 should be rejected (spec requires 2..128)")
	}
	if _, ok := in.APInt(true, 129); ok {
		t.Fatalf("width 129 should be rejected (spec caps arbitrary-precision at 128 bits)")
	}
	if _, ok := in.APInt(true, 128); !ok {
		t.Fatalf("width 128 should be accepted")
	}
}

func TestArrayRequiresPositiveLength(t *testing.T) {
	in := NewInterner()
	if _, ok := in.Array(in.Int(), 0); ok {
		t.Fatalf("zero-length array should be rejected")
	}
	arr, ok := in.Array(in.Int(), 7)
	if !ok {
		t.Fatalf("Array(Int, 7) should succeed")
	}
	if arr.BitWidth() != 7*32 {
		t.Fatalf("BitWidth() = %d, want %d", arr.BitWidth(), 7*32)
	}
}

func TestBitWidthRule(t *testing.T) {
	in := NewInterner()
	cases := []struct {
		name string
		t    *Type
		want int
	}{
		{"bool", in.Bool(), 1},
		{"bit", in.Bit(), 1},
		{"int", in.Int(), 32},
		{"float", in.Float(), 32},
		{"complex", in.Complex(), 64},
	}
	for _, c := range cases {
		if got := c.t.BitWidth(); got != c.want {
			t.Errorf("%s.BitWidth() = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestStructBitWidthIsSumOfFields(t *testing.T) {
	in := NewInterner()
	st := in.Struct("Point", []Field{
		{Name: "x", Type: in.Int()},
		{Name: "y", Type: in.Int()},
	})
	if st.BitWidth() != 64 {
		t.Fatalf("BitWidth() = %d, want 64", st.BitWidth())
	}
	if in.Struct("Point", nil) != st {
		t.Fatalf("re-declaring struct %q by name should return the canonical handle", "Point")
	}
}

func TestConversionChain(t *testing.T) {
	in := NewInterner()
	n7, _ := in.APInt(false, 7)
	if !in.ConvertibleTo(in.Bool(), in.Bit()) {
		t.Errorf("Bool should convert to Bit")
	}
	if !in.ConvertibleTo(in.Bit(), n7) {
		t.Errorf("Bit should convert to an unsigned APInt")
	}
	if !in.ConvertibleTo(n7, in.Int()) {
		t.Errorf("APInt should convert to Int")
	}
	if !in.ConvertibleTo(in.Int(), in.Float()) {
		t.Errorf("Int should convert to Float")
	}
	if in.ConvertibleTo(in.Float(), in.Int()) {
		t.Errorf("Float should not convert back to Int")
	}
	if in.ConvertibleTo(in.Complex(), in.Float()) {
		t.Errorf("Complex should not convert to Float (one-directional per EXPANSION)")
	}
	if !in.ConvertibleTo(in.Int(), in.Complex()) {
		t.Errorf("Int should convert to Complex, mirroring Int -> Float")
	}
	if !in.ConvertibleTo(in.Bool(), in.Complex()) {
		t.Errorf("Bool should convert to Complex, mirroring Bool -> Float")
	}
	if !in.ConvertibleTo(n7, in.Complex()) {
		t.Errorf("APInt should convert to Complex, mirroring APInt -> Float")
	}
	if _, ok := in.CommonType(in.Int(), in.Complex()); !ok {
		t.Errorf("CommonType(Int, Complex) should succeed via the Complex conversion mirror")
	}
}

func TestAPIntWideningRequiresSameSign(t *testing.T) {
	in := NewInterner()
	u8, _ := in.APInt(false, 8)
	s16, _ := in.APInt(true, 16)
	if in.ConvertibleTo(u8, s16) {
		t.Fatalf("unsigned APInt should not convert to a signed APInt of greater width")
	}
	u16, _ := in.APInt(false, 16)
	if !in.ConvertibleTo(u8, u16) {
		t.Fatalf("unsigned APInt(8) should convert to unsigned APInt(16)")
	}
	if in.ConvertibleTo(u16, u8) {
		t.Fatalf("unsigned APInt(16) should not narrow to APInt(8)")
	}
}

func TestCommonTypeIsLeastUpperBound(t *testing.T) {
	in := NewInterner()
	common, ok := in.CommonType(in.Bool(), in.Int())
	if !ok || common != in.Int() {
		t.Fatalf("CommonType(Bool, Int) = %v, %v; want Int, true", common, ok)
	}
	if _, ok := in.CommonType(in.Float(), in.Struct("S", nil)); ok {
		t.Fatalf("CommonType(Float, Struct) should have no common type")
	}
}

func TestErrorTypeAbsorbsEverything(t *testing.T) {
	in := NewInterner()
	common, ok := in.CommonType(in.Error(), in.Int())
	if !ok || common.Kind() != Error {
		t.Fatalf("CommonType(Error, Int) = %v, %v; want Error, true", common, ok)
	}
	if !in.ConvertibleTo(in.Error(), in.Struct("Anything", nil)) {
		t.Fatalf("Error should convert to any type so it never cascades a second diagnostic")
	}
}

func TestHasFloatIsRecursive(t *testing.T) {
	in := NewInterner()
	arr, _ := in.Array(in.Float(), 4)
	if !arr.HasFloat() {
		t.Fatalf("array of float should report HasFloat")
	}
	st := in.Struct("Mixed", []Field{{Name: "n", Type: in.Int()}, {Name: "f", Type: in.Float()}})
	if !st.HasFloat() {
		t.Fatalf("struct containing a float field should report HasFloat")
	}
	if in.Int().HasFloat() {
		t.Fatalf("int should not report HasFloat")
	}
}

func TestHDLVector(t *testing.T) {
	in := NewInterner()
	if got := in.Bool().HDLVector(); got != "std_logic" {
		t.Fatalf("Bool().HDLVector() = %q, want %q", got, "std_logic")
	}
	if got := in.Int().HDLVector(); got != "std_logic_vector(31 downto 0)" {
		t.Fatalf("Int().HDLVector() = %q, want %q", got, "std_logic_vector(31 downto 0)")
	}
}
