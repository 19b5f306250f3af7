package decisions

import (
	"errors"
	"testing"
)

func TestParseReviewList(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{`[]`, []string{}},
		{` [ ] `, []string{}},
		{`['https://github.com/mozilla-mobile/fenix/pull/1067']`, []string{"https://github.com/mozilla-mobile/fenix/pull/1067"}},
		{`["a", 'b',]`, []string{"a", "b"}},
		{`['it\'s', "say \"hi\"", 'back\\slash']`, []string{"it's", `say "hi"`, `back\slash`}},
		{`['tab\there', 'keep\d']`, []string{"tab\there", `keep\d`}},
		{"[\n  'a',\n  'b'\n]", []string{"a", "b"}},
		{`["a, b"]`, []string{"a, b"}},
	}
	for _, tc := range cases {
		got, err := ParseReviewList(tc.in)
		if err != nil {
			t.Fatalf("ParseReviewList(%q) returned error: %v", tc.in, err)
		}
		if len(got) != len(tc.want) {
			t.Fatalf("ParseReviewList(%q) = %q, want %q", tc.in, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("ParseReviewList(%q)[%d] = %q, want %q", tc.in, i, got[i], tc.want[i])
			}
		}
	}
}

func TestParseReviewListRejectsNonLiterals(t *testing.T) {
	inputs := []string{
		``,
		`'a'`,
		`[a]`,
		`[1, 2]`,
		`['a' 'b']`,
		`['a'`,
		`['a]`,
		`['a',,]`,
		`['a'] + ['b']`,
		`__import__('os').system('true')`,
		`[__import__('os')]`,
		`['a\`,
		"['multi\nline']",
	}
	for _, in := range inputs {
		_, err := ParseReviewList(in)
		if err == nil {
			t.Fatalf("expected %q to be rejected", in)
		}
		if !errors.Is(err, ErrMalformedList) {
			t.Fatalf("expected ErrMalformedList for %q, got %v", in, err)
		}
	}
}
