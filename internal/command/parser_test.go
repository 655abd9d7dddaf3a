package command

import (
	"strings"
	"testing"
)

func TestParseChatLine(t *testing.T) {
	c := Parse("hello there")
	if c.Kind != Chat {
		t.Fatalf("kind: got %v, want Chat", c.Kind)
	}
	if c.Text != "hello there" {
		t.Errorf("text: got %q, want %q", c.Text, "hello there")
	}
}

func TestParseConfirmLines(t *testing.T) {
	y := Parse("y")
	if y.Kind != Confirm || !y.Confirm {
		t.Errorf("y: got %+v, want Confirm{true}", y)
	}
	n := Parse("n")
	if n.Kind != Confirm || n.Confirm {
		t.Errorf("n: got %+v, want Confirm{false}", n)
	}
}

func TestParseUnknownCommand(t *testing.T) {
	c := Parse("/frobnicate")
	if c.Kind != Invalid {
		t.Fatalf("kind: got %v, want Invalid", c.Kind)
	}
	if c.Help == "" {
		t.Error("expected non-empty help text for unknown command")
	}
}

func TestParseEmptySlash(t *testing.T) {
	c := Parse("/")
	if c.Kind != Invalid {
		t.Errorf("kind: got %v, want Invalid", c.Kind)
	}
}

func TestParseAccountRegister(t *testing.T) {
	c := Parse("/account register alice hunter2")
	if c.Kind != AccountRegister {
		t.Fatalf("kind: got %v, want AccountRegister", c.Kind)
	}
	if c.Target != "alice" || c.Text != "hunter2" {
		t.Errorf("got target=%q text=%q, want alice/hunter2", c.Target, c.Text)
	}
}

func TestParseAccountRegisterMissingArgs(t *testing.T) {
	c := Parse("/account register alice")
	if c.Kind != Invalid {
		t.Errorf("kind: got %v, want Invalid", c.Kind)
	}
}

func TestParseAccountEdit(t *testing.T) {
	u := Parse("/account edit username newname")
	if u.Kind != AccountEditUsername || u.Target != "newname" {
		t.Errorf("got %+v", u)
	}
	p := Parse("/account edit password newpass")
	if p.Kind != AccountEditPassword || p.Target != "newpass" {
		t.Errorf("got %+v", p)
	}
	bad := Parse("/account edit nickname x")
	if bad.Kind != Invalid {
		t.Errorf("kind: got %v, want Invalid", bad.Kind)
	}
}

func TestParseAccountDeleteForce(t *testing.T) {
	plain := Parse("/account delete")
	if plain.Kind != AccountDelete || plain.Force {
		t.Errorf("got %+v, want Force=false", plain)
	}
	forced := Parse("/account delete force")
	if forced.Kind != AccountDelete || !forced.Force {
		t.Errorf("got %+v, want Force=true", forced)
	}
}

func TestParseRoomCreateWhitelist(t *testing.T) {
	plain := Parse("/room create lobby")
	if plain.Kind != RoomCreate || plain.Target != "lobby" || plain.Force {
		t.Errorf("got %+v", plain)
	}
	wl := Parse("/room create lobby whitelist")
	if wl.Kind != RoomCreate || !wl.Force {
		t.Errorf("got %+v, want Force=true", wl)
	}
}

func TestParseRoomDeleteForce(t *testing.T) {
	c := Parse("/room delete lobby force")
	if c.Kind != RoomDelete || c.Target != "lobby" || !c.Force {
		t.Errorf("got %+v", c)
	}
}

func TestParseMsg(t *testing.T) {
	c := Parse("/msg bob hey there friend")
	if c.Kind != Msg {
		t.Fatalf("kind: got %v, want Msg", c.Kind)
	}
	if c.Target != "bob" || c.Text != "hey there friend" {
		t.Errorf("got target=%q text=%q", c.Target, c.Text)
	}
}

func TestParseModBanWithDurationAndReason(t *testing.T) {
	c := Parse("/mod ban alice 1d2h spamming")
	if c.Kind != ModBan {
		t.Fatalf("kind: got %v, want ModBan", c.Kind)
	}
	if c.Target != "alice" || c.Duration != "1d2h" || c.Text != "spamming" {
		t.Errorf("got %+v", c)
	}
}

func TestParseModBanNoDurationDefaultsPermanent(t *testing.T) {
	c := Parse("/mod ban alice being rude")
	if c.Kind != ModBan {
		t.Fatalf("kind: got %v, want ModBan", c.Kind)
	}
	if c.Duration != "*" {
		t.Errorf("duration: got %q, want *", c.Duration)
	}
	if c.Text != "being rude" {
		t.Errorf("text: got %q, want %q", c.Text, "being rude")
	}
}

func TestParseModBanDurationOnly(t *testing.T) {
	c := Parse("/mod ban alice 30m")
	if c.Duration != "30m" {
		t.Errorf("duration: got %q, want 30m", c.Duration)
	}
	if c.Text != "" {
		t.Errorf("text: got %q, want empty", c.Text)
	}
}

func TestParseSuperRoles(t *testing.T) {
	add := Parse("/super roles add moderator mod.kick mod.mute")
	if add.Kind != SuperRolesAdd || add.Role != "moderator" {
		t.Fatalf("got %+v", add)
	}
	if len(add.Args) != 2 || add.Args[0] != "mod.kick" || add.Args[1] != "mod.mute" {
		t.Errorf("args: got %v", add.Args)
	}

	recolor := Parse("/super roles recolor admin #FF0000")
	if recolor.Kind != SuperRolesRecolor || recolor.Role != "admin" || recolor.Hex != "#FF0000" {
		t.Errorf("got %+v", recolor)
	}
}

func TestParseUserRecolor(t *testing.T) {
	self := Parse("/user recolor #00FF00")
	if self.Kind != UserRecolor || self.Hex != "#00FF00" || self.Target != "" {
		t.Errorf("got %+v", self)
	}
	other := Parse("/user recolor #00FF00 bob")
	if other.Target != "bob" {
		t.Errorf("target: got %q, want bob", other.Target)
	}
}

func TestDurationFormatPasses(t *testing.T) {
	cases := map[string]bool{
		"*":       true,
		"1d":      true,
		"1d2h3m4s": true,
		"2h":      true,
		"":        false,
		"abc":     false,
		"1x":      false,
	}
	for spec, want := range cases {
		if got := DurationFormatPasses(spec); got != want {
			t.Errorf("DurationFormatPasses(%q): got %v, want %v", spec, got, want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	secs, err := ParseDuration("1d2h3m4s")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := uint64(86400 + 2*3600 + 3*60 + 4)
	if secs != want {
		t.Errorf("got %d, want %d", secs, want)
	}

	perm, err := ParseDuration("*")
	if err != nil || perm != 0 {
		t.Errorf("got secs=%d err=%v, want 0/nil", perm, err)
	}
}

func TestParseDurationRejectsGarbage(t *testing.T) {
	if _, err := ParseDuration("1z"); err == nil {
		t.Error("expected error for invalid unit")
	}
}

func TestExpandGrants(t *testing.T) {
	set := ExpandGrants([]string{"super.whitelist"})
	for _, want := range []string{"super.whitelist", "super.whitelist.info", "super.whitelist.add", "super.whitelist.remove", "super.whitelist.toggle"} {
		if !set[want] {
			t.Errorf("expected %q to be granted, got %v", want, set)
		}
	}
	if set["super.roles.add"] {
		t.Error("did not expect super.roles.add to be granted")
	}
}

func TestSortedTokens(t *testing.T) {
	got := SortedTokens(map[string]bool{"mod.kick": true, "afk": true, "mod.ban": true})
	want := []string{"afk", "mod.ban", "mod.kick"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHelpInRoomFiltersByAllowedSet(t *testing.T) {
	allowed := map[string]bool{"afk": true}
	help := HelpInRoom(allowed)
	if !strings.Contains(help, "/afk") {
		t.Error("expected /afk in help output")
	}
	if strings.Contains(help, "/mod kick") {
		t.Error("did not expect mod.kick description without permission")
	}
}
