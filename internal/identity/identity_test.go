package identity

import (
	"reflect"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in   string
		want Key
	}{
		{"  John.Doe@Example.COM ", Key{Full: "john.doe@example.com", Local: "john.doe", Simple: "johndoe", HasDomain: true}},
		{"Jane Doe", Key{Full: "jane doe", Local: "jane doe", Simple: "janedoe"}},
		{"a_b-c", Key{Full: "a_b-c", Local: "a_b-c", Simple: "abc"}},
		{"bob@", Key{Full: "bob@", Local: "bob", Simple: "bob"}},
		{"", Key{}},
	}
	for _, tc := range cases {
		if got := Canonicalize(tc.in); got != tc.want {
			t.Fatalf("Canonicalize(%q) = %+v; want %+v", tc.in, got, tc.want)
		}
	}
}

func TestMatches(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"mgr@example.com", "MGR@example.com ", true},
		{"mgr@example.com", "mgr", true},
		{"mgr", "mgr@example.com", true},
		{"john.doe@example.com", "John Doe", true},
		{"john.doe@example.com", "john_doe", true},
		{"john.doe@example.com", "john.doe@other.com", false},
		{"hr@example.com", "mgr@example.com", false},
		{"hr@example.com", "mgr", false},
		{"", "", false},
		{"", "mgr", false},
	}
	for _, tc := range cases {
		if got := Matches(tc.a, tc.b); got != tc.want {
			t.Fatalf("Matches(%q, %q) = %v; want %v", tc.a, tc.b, got, tc.want)
		}
		if got := Matches(tc.b, tc.a); got != tc.want {
			t.Fatalf("Matches is not symmetric for (%q, %q)", tc.a, tc.b)
		}
	}
}

func TestIsEmail(t *testing.T) {
	for in, want := range map[string]bool{
		"a@b.com":      true,
		" a@b.com ":    true,
		"Jane Doe":     false,
		"@b.com":       false,
		"a@":           false,
		"jane doe@x.y": false,
	} {
		if IsEmail(in) != want {
			t.Fatalf("IsEmail(%q) != %v", in, want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("  MiXed@Case.Com\t") != "mixed@case.com" {
		t.Fatalf("unexpected Normalize output")
	}
}

func TestParseMentions(t *testing.T) {
	got := ParseMentions("Hi @Alice@x.com, can @bob check? cc @alice@X.com! and @carol).")
	want := []string{"alice@x.com", "bob", "carol"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseMentions = %v; want %v", got, want)
	}
	if got := ParseMentions("no mentions here"); len(got) != 0 {
		t.Fatalf("expected no mentions, got %v", got)
	}
	if got := ParseMentions("lonely @!? sign"); len(got) != 0 {
		t.Fatalf("punctuation-only mention must be dropped, got %v", got)
	}
}

func TestCandidates(t *testing.T) {
	got := Candidates("Jane.Doe@Example.com", "Jane Doe")
	want := []string{"jane.doe@example.com", "jane.doe", "jane doe"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Candidates = %v; want %v", got, want)
	}
	got = Candidates("bob", "")
	if !reflect.DeepEqual(got, []string{"bob"}) {
		t.Fatalf("Candidates dedupe failed: %v", got)
	}
}
