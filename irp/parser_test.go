package irp

import "testing"

func TestParseNEC1(t *testing.T) {
	proto, err := Parse("{38k,564}<1,-1|1,-3>(16,-8,D:8,S:8,F:8,~F:8,1,^108m)[D:0..255,S:0..255,F:0..255]")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if proto.General.FrequencyKHz != 38 {
		t.Errorf("frequency = %v, want 38", proto.General.FrequencyKHz)
	}
	if proto.General.UnitUs != 564 {
		t.Errorf("unit = %v, want 564", proto.General.UnitUs)
	}
	if len(proto.BitSpec.Entries) != 2 {
		t.Fatalf("bitspec entries = %d, want 2", len(proto.BitSpec.Entries))
	}
	if len(proto.Params) != 3 {
		t.Fatalf("params = %d, want 3", len(proto.Params))
	}
	wantNames := []string{"D", "S", "F"}
	for i, name := range wantNames {
		if proto.Params[i].Name != name {
			t.Errorf("param[%d] = %q, want %q", i, proto.Params[i].Name, name)
		}
		if proto.Params[i].Min != 0 || proto.Params[i].Max != 255 {
			t.Errorf("param %q range = [%d,%d], want [0,255]", name, proto.Params[i].Min, proto.Params[i].Max)
		}
	}
	if len(proto.Stream) != 1 {
		t.Fatalf("stream top-level items = %d, want 1 repeat group", len(proto.Stream))
	}
	rg, ok := proto.Stream[0].(*RepeatGroup)
	if !ok {
		t.Fatalf("stream[0] = %T, want *RepeatGroup", proto.Stream[0])
	}
	if rg.Min != 1 || rg.Max != 1 {
		t.Errorf("top group repeat = [%d,%d], want [1,1] (bare group)", rg.Min, rg.Max)
	}
	// 16, -8, D:8, S:8, F:8, ~F:8, 1, ^108m
	if len(rg.Items) != 8 {
		t.Fatalf("group items = %d, want 8", len(rg.Items))
	}
	lead, ok := rg.Items[0].(*Duration)
	if !ok || lead.Value != 16 || lead.Sign != 0 {
		t.Errorf("item0 = %#v, want unsigned Duration(16)", rg.Items[0])
	}
	gap, ok := rg.Items[1].(*Duration)
	if !ok || gap.Value != 8 || gap.Sign != -1 {
		t.Errorf("item1 = %#v, want Duration(-8)", rg.Items[1])
	}
	d, ok := rg.Items[2].(*BitField)
	if !ok {
		t.Fatalf("item2 = %T, want *BitField", rg.Items[2])
	}
	if name, ok := d.Var.(*NameExpr); !ok || name.Name != "D" {
		t.Errorf("item2.Var = %#v, want NameExpr(D)", d.Var)
	}
	cf, ok := rg.Items[5].(*BitField)
	if !ok || !cf.Complement {
		t.Errorf("item5 = %#v, want complemented BitField", rg.Items[5])
	}
	ext, ok := rg.Items[7].(*Extent)
	if !ok || ext.Value != 108000 {
		t.Errorf("item7 = %#v, want Extent(108000us)", rg.Items[7])
	}
}

func TestParseRepeatCounts(t *testing.T) {
	proto, err := Parse("{38k,564}<1,-1|1,-3>(16,-8,F:8)(80,-8,1)*[F:0..255]")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(proto.Stream) != 2 {
		t.Fatalf("stream items = %d, want 2", len(proto.Stream))
	}
	second := proto.Stream[1].(*RepeatGroup)
	if second.Min != 0 || second.Max != -1 {
		t.Errorf("star group = [%d,%d], want [0,-1]", second.Min, second.Max)
	}
}

func TestParseAlternation(t *testing.T) {
	proto, err := Parse("{38k,564}<1,-1|1,-3>(16,-8,F:8,1,^108m)|(8,-4,F:8,1,^108m)[F:0..255]")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(proto.Stream) != 1 {
		t.Fatalf("stream items = %d, want 1 Alternative", len(proto.Stream))
	}
	alt, ok := proto.Stream[0].(*Alternative)
	if !ok {
		t.Fatalf("stream[0] = %T, want *Alternative", proto.Stream[0])
	}
	if len(alt.Branches) != 2 {
		t.Fatalf("branches = %d, want 2", len(alt.Branches))
	}
}

func TestParseDefinitions(t *testing.T) {
	proto, err := Parse("{38k,564}<1,-1|1,-3>(16,-8,D:8,1,^108m)[D:0..255]{T=1-T}")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(proto.Definitions) != 1 {
		t.Fatalf("definitions = %d, want 1", len(proto.Definitions))
	}
	if proto.Definitions[0].Name != "T" {
		t.Errorf("definition name = %q, want T", proto.Definitions[0].Name)
	}
}

func TestParseRejectsBadParamRange(t *testing.T) {
	_, err := Parse("{38k,564}<1,-1|1,-3>(16,-8,D:8,1,^108m)[D:255..0]")
	if err == nil {
		t.Fatal("expected a semantic error for min > max, got nil")
	}
	if _, ok := err.(*SemanticError); !ok {
		t.Errorf("err = %T, want *SemanticError", err)
	}
}

func TestEvalBitFieldReverse(t *testing.T) {
	vt := NewVartable(map[string]int64{"F": 0x05}) // 0b0000_0101
	e := &BitFieldExpr{X: &NameExpr{Name: "F"}, Width: &ConstExpr{Value: -4}}
	v, err := Eval(e, vt)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if v != 0xA { // 0101 reversed is 1010
		t.Errorf("reversed nibble = %#x, want 0xa", v)
	}
}

func TestVartableSetIsCopyOnWrite(t *testing.T) {
	base := NewVartable(map[string]int64{"D": 1})
	next := base.Set("D", 2, 8)
	if v, _ := base.Get("D"); v != 1 {
		t.Errorf("base.D = %d after Set on derived table, want unchanged 1", v)
	}
	if v, _ := next.Get("D"); v != 2 {
		t.Errorf("next.D = %d, want 2", v)
	}
}
