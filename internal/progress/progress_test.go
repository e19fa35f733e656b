package progress

import "testing"

func TestFormatThroughput(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0/s"},
		{999, "999/s"},
		{1500, "1.5K/s"},
		{2_500_000, "2.5M/s"},
	}
	for _, c := range cases {
		if got := FormatThroughput(c.in); got != c.want {
			t.Errorf("FormatThroughput(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 * 1024 * 1024, "3.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
	}
	for _, c := range cases {
		if got := FormatBytes(c.in); got != c.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}
