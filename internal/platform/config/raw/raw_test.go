package raw

import "testing"

func TestConfGet(t *testing.T) {
	t.Setenv("LOG_LEVEL", " info ")

	root := New()
	log := root.Prefix("LOG_")

	tests := []struct {
		name string
		conf Conf
		key  string
		def  string
		want string
	}{
		{name: "root full key", conf: root, key: "LOG_LEVEL", def: "x", want: "info"},
		{name: "prefixed hit", conf: log, key: "LEVEL", def: "x", want: "info"},
		{name: "missing returns default", conf: log, key: "MISSING", def: "debug", want: "debug"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.conf.Get(tt.key, tt.def); got != tt.want {
				t.Fatalf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestConfGetBool(t *testing.T) {
	c := New().Prefix("B_")
	cases := map[string]bool{"1": true, "TRUE": true, "yes": true, "on": true, "0": false, "nah": false}
	for in, want := range cases {
		t.Setenv("B_CALLER", in)
		if got := c.GetBool("CALLER", !want); got != want {
			t.Fatalf("GetBool(%q) = %v, want %v", in, got, want)
		}
	}
	if !c.GetBool("MISSING", true) {
		t.Fatalf("GetBool missing should return default")
	}
}

func TestConfGetInt(t *testing.T) {
	c := New().Prefix("I_")
	t.Setenv("I_N", "12")
	if got := c.GetInt("N", 0); got != 12 {
		t.Fatalf("GetInt = %d", got)
	}
	t.Setenv("I_NEG", "-3")
	if got := c.GetInt("NEG", 4); got != 4 {
		t.Fatalf("GetInt negative = %d", got)
	}
	t.Setenv("I_BAD", "1x")
	if got := c.GetInt("BAD", 9); got != 9 {
		t.Fatalf("GetInt invalid = %d", got)
	}
}

func TestConfGetEnum(t *testing.T) {
	c := New().Prefix("LOG_")
	t.Setenv("LOG_FORMAT", "JSON")
	if got := c.GetEnum("FORMAT", "auto", "auto", "console", "json"); got != "json" {
		t.Fatalf("GetEnum = %q", got)
	}
	t.Setenv("LOG_FORMAT", "xml")
	if got := c.GetEnum("FORMAT", "auto", "auto", "console", "json"); got != "auto" {
		t.Fatalf("GetEnum invalid = %q", got)
	}
}
