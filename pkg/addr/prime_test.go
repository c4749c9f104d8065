package addr

import "testing"

func TestIPow32Identities(t *testing.T) {
	bases := []uint32{0, 1, 7, 1181, 1299299}
	for _, b := range bases {
		if got := IPow32(b, 0); got != 1 {
			t.Errorf("IPow32(%d, 0) = %d, want 1", b, got)
		}
	}
	exps := []uint32{0, 2, 4, 400}
	for _, e := range exps {
		if got := IPow32(1, e); got != 1 {
			t.Errorf("IPow32(1, %d) = %d, want 1", e, got)
		}
	}

	cases := []struct {
		base, exp uint32
		want      uint32
	}{
		{2, 4, 16},
		{12, 2, 144},
		{953, 3, 865523177},
		{953, 48, 1629949057},
		{1296829, 3600, 454359873},
	}
	for _, c := range cases {
		if got := IPow32(c.base, c.exp); got != c.want {
			t.Errorf("IPow32(%d, %d) = %d, want %d", c.base, c.exp, got, c.want)
		}
	}
}

func TestMnemonicPrimeDistinctCommonMnemonics(t *testing.T) {
	mnemonics := []string{"add", "sub", "xor", "mov", "aeskeygenassist", "vfnmsubss"}
	seen := map[uint32]string{}
	for _, m := range mnemonics {
		id := MnemonicPrime(m)
		if id == 0 {
			t.Errorf("MnemonicPrime(%q) = 0, want non-zero", m)
		}
		if prev, ok := seen[id]; ok {
			t.Errorf("MnemonicPrime(%q) collides with %q (both %d)", m, prev, id)
		}
		seen[id] = m
	}
}

func TestMnemonicPrimeDistinctAnagrams(t *testing.T) {
	a := MnemonicPrime("ITTEE NETEE NE")
	b := MnemonicPrime("ITETT LSETT LS")
	if a == b {
		t.Errorf("MnemonicPrime collision between anagram-like strings: %d", a)
	}
}

func TestMnemonicPrimeEmpty(t *testing.T) {
	if got := MnemonicPrime(""); got != 0 {
		t.Errorf("MnemonicPrime(\"\") = %d, want 0", got)
	}
}
