package name_test

import (
	"testing"

	"github.com/tobias/keystone/internal/name"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		nm   string
		in   []string
		want string
	}{
		{"bare leaf", []string{"top"}, "top"},
		{"module instance leaf", []string{"cpu", "u0", "alu"}, "cpu.u0.alu"},
		{"sanitizes special chars", []string{"cpu", "u[0]", "alu"}, "cpu.u_0_.alu"},
		{"leading dot becomes underscore", []string{"", "top"}, "_.top"},
		{"empty parts yields unknown", []string{}, "unknown"},
		{"space replaced", []string{"a b", "c"}, "a_b.c"},
	}
	for _, tt := range tests {
		t.Run(tt.nm, func(t *testing.T) {
			got := name.New(tt.in).Filename()
			if got != tt.want {
				t.Errorf("Filename() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDisplay(t *testing.T) {
	tests := []struct {
		nm   string
		in   []string
		want string
	}{
		{"single leaf, no instance parts", []string{"top"}, ""},
		{"one instance part bare", []string{"cpu", "u0", "alu"}, "u0"},
		{"multiple instance parts", []string{"top", "u0", "cpu", "u1", "alu"}, "u0.u1"},
		{"non-bare part escaped", []string{"top", "u 0", "alu"}, `\u 0 `},
	}
	for _, tt := range tests {
		t.Run(tt.nm, func(t *testing.T) {
			got := name.New(tt.in).Display()
			if got != tt.want {
				t.Errorf("Display() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRTLIL(t *testing.T) {
	tests := []struct {
		nm   string
		in   []string
		want string
	}{
		{"single leaf", []string{"sig"}, "/sig"},
		{"module and leaf", []string{"cpu", "sig"}, "/sig"},
		{"module instance leaf", []string{"cpu", "u0", "sig"}, "cpu/sig"},
		{"deep hierarchy", []string{"top", "u0", "cpu", "u1", "sig"}, "top.u0.cpu/sig"},
	}
	for _, tt := range tests {
		t.Run(tt.nm, func(t *testing.T) {
			got := name.New(tt.in).RTLIL()
			if got != tt.want {
				t.Errorf("RTLIL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDBKeyRoundTrip(t *testing.T) {
	n := name.New([]string{"top", "u0", "alu"})
	key := n.DBKey()
	if key != `["top","u0","alu"]` {
		t.Fatalf("DBKey() = %q, want canonical JSON array", key)
	}

	got, err := name.FromDBKey(key)
	if err != nil {
		t.Fatalf("FromDBKey() unexpected error: %v", err)
	}
	if !got.Equal(n) {
		t.Errorf("FromDBKey(DBKey()) = %v, want %v", got.Parts(), n.Parts())
	}
}

func TestFromDBKeyInvalid(t *testing.T) {
	if _, err := name.FromDBKey("not json"); err == nil {
		t.Error("FromDBKey() on malformed input should return an error")
	}
}

func TestEqual(t *testing.T) {
	a := name.New([]string{"top", "u0", "alu"})
	b := name.New([]string{"top", "u0", "alu"})
	c := name.New([]string{"top", "u0", "fpu"})

	if !a.Equal(b) {
		t.Error("identical parts should be Equal")
	}
	if a.Equal(c) {
		t.Error("differing parts should not be Equal")
	}
	if a.Key() != b.Key() {
		t.Error("Key() should agree with Equal()")
	}
}

func TestModuleAndInstanceParts(t *testing.T) {
	n := name.New([]string{"top", "u0", "cpu", "u1", "alu"})
	mods := n.ModuleParts()
	insts := n.InstanceParts()

	wantMods := []string{"top", "cpu", "alu"}
	wantInsts := []string{"u0", "u1"}

	if len(mods) != len(wantMods) {
		t.Fatalf("ModuleParts() = %v, want %v", mods, wantMods)
	}
	for i := range wantMods {
		if mods[i] != wantMods[i] {
			t.Errorf("ModuleParts()[%d] = %q, want %q", i, mods[i], wantMods[i])
		}
	}
	if len(insts) != len(wantInsts) {
		t.Fatalf("InstanceParts() = %v, want %v", insts, wantInsts)
	}
	for i := range wantInsts {
		if insts[i] != wantInsts[i] {
			t.Errorf("InstanceParts()[%d] = %q, want %q", i, insts[i], wantInsts[i])
		}
	}
}

func TestLocal(t *testing.T) {
	base := name.New([]string{"top", "u0", "alu"})
	got := base.Local("fpu")
	want := name.New([]string{"top", "u0", "fpu"})
	if !got.Equal(want) {
		t.Errorf("Local(%q) = %v, want %v", "fpu", got.Parts(), want.Parts())
	}
}
