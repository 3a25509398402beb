package catalog

import "testing"

func TestLabel(t *testing.T) {
	cases := []struct {
		subject string
		command string
		want    string
	}{
		{"cn", "cnunit1", "Unit1"},
		{"cn", "cnunit3_part1", "Unit3 Part1"},
		{"cn", "cntextbook", "Textbook"},
		{"cn", "cnonlinenotes", "Onlinenotes"},
		{"CN", "cnunit2", "Unit2"},
		{"Computer Networks", "computernetworks_intro", "Intro"},
		{"cn", "cn", "Cn"},
		{"cn", "cn_", "Cn"},
		{"os", "cnunit1", "Cnunit1"},
		{"cn", "cnunit3__part1", "Unit3 Part1"},
		{"", "extra_notes", "Extra Notes"},
	}
	for _, tc := range cases {
		if got := Label(tc.subject, tc.command); got != tc.want {
			t.Errorf("Label(%q, %q) = %q, want %q", tc.subject, tc.command, got, tc.want)
		}
	}
}

func TestLabelIsPure(t *testing.T) {
	for _, cmd := range []string{"cnunit1", "cnunit3_part2", "cnonlinenotes"} {
		first := Label("cn", cmd)
		if second := Label("cn", cmd); second != first {
			t.Fatalf("Label not deterministic for %s: %q vs %q", cmd, first, second)
		}
	}
}
