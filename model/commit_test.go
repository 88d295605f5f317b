package model

import "testing"

func TestShortID(t *testing.T) {
	short := ShortID("deadbeefdeadbeef")
	expect := "deadbeef"
	if short != expect {
		t.Fatal("expected", expect, "got", short)
	}
	if short := ShortID("abc"); short != "abc" {
		t.Fatal("expected", "abc", "got", short)
	}
}

func TestCommitMessage(t *testing.T) {
	tcs := []struct {
		name   string
		commit Commit
		expect string
	}{
		{
			name:   "subject-only",
			commit: Commit{Subject: "ALLI-1: fix it"},
			expect: "ALLI-1: fix it",
		},
		{
			name:   "with-body",
			commit: Commit{Subject: "fix it", Body: "refs ALLI-2"},
			expect: "fix it\n\nrefs ALLI-2",
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			if msg := tc.commit.Message(); msg != tc.expect {
				t.Fatalf("expected %q, got %q", tc.expect, msg)
			}
		})
	}
}
