package updater

import "testing"

func TestParseVersion(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want Version
	}{
		{"", Version{Issue: "empty"}},
		{"(gog-7)", Version{GOG: "7", Issue: "onlygog"}},
		{"1.2.3 (gog-2a)", Version{GOG: "2", Doted: "1.2.3"}},
		{"2022-08-17", Version{Date: "2022-08-17"}},
		{"2022_08_17", Version{Date: "2022-08-17", Issue: "date"}},
		{"17-08-2022", Version{Date: "2022-08-17", Issue: "date"}},
		{"1.2.3", Version{Doted: "1.2.3"}},
		{"1.02.3", Version{Doted: "1.2.3", Issue: "doted"}},
		{"2019.03.24", Version{Date: "2019-03-24", Issue: "date"}},
		{"v329", Version{Number: "329"}},
		{"build 9", Version{Number: "9"}},
		{"1843", Version{Number: "1843"}},
		{"r78b", Version{Number: "78"}},
		{"10 out of 12", Version{Issue: "unparsable"}},
		{"final", Version{Issue: "unparsable"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			if got := ParseVersion(tc.in); got != tc.want {
				t.Errorf("ParseVersion(%q) = %+v, want %+v", tc.in, got, tc.want)
			}
		})
	}
}

func TestVersion_String(t *testing.T) {
	t.Parallel()
	if got := (&Version{Doted: "1.2.3"}).String(); got != "1.2.3" {
		t.Errorf("String() = %q, want 1.2.3", got)
	}
	if got := (&Version{Issue: "empty"}).String(); got != "" {
		t.Errorf("String() = %q, want empty", got)
	}
}

func TestSameVersion(t *testing.T) {
	t.Run("exact matches", func(t *testing.T) {
		t.Parallel()
		cases := []struct {
			name string
			a, b Version
			want bool
		}{
			{"equal dotted", Version{Doted: "1.2.3"}, Version{Doted: "1.2.3"}, true},
			{"different dotted", Version{Doted: "1.2.3"}, Version{Doted: "1.2.4"}, false},
			{"equal dates", Version{Date: "2022-08-17"}, Version{Date: "2022-08-17"}, true},
			{"equal numbers", Version{Number: "329"}, Version{Number: "329"}, true},
			{"number against date", Version{Number: "329"}, Version{Date: "2022-08-17"}, false},
			{"both undefined", Version{Issue: "empty"}, Version{Issue: "empty"}, false},
		}
		for _, tc := range cases {
			tc := tc
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()
				if got := SameVersion(&tc.a, &tc.b); got != tc.want {
					t.Errorf("SameVersion() = %v, want %v", got, tc.want)
				}
			})
		}
	})

	t.Run("fuzzy match flags both sides", func(t *testing.T) {
		t.Parallel()
		a := Version{Doted: "1.2.3"}
		b := Version{Number: "123"}
		if !SameVersion(&a, &b) {
			t.Fatal("SameVersion() = false, want a fuzzy match")
		}
		if a.Issue != "fuzzy" || b.Issue != "fuzzy" {
			t.Errorf("issues = %q/%q, want fuzzy on both", a.Issue, b.Issue)
		}
	})
}
