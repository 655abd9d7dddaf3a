// Package command defines the server's input grammar: a typed Command
// variant produced from one line of client input, the restricted-command
// namespace used by the permission engine, and the help text shown per
// session state.
package command

import "sort"

// Kind discriminates the Command tagged union. Go has no sum types, so a
// Kind enum plus a flat field set (only some of which are populated per
// Kind) stands in for one.
type Kind int

const (
	Invalid Kind = iota
	Help
	Ping
	Quit
	Leave
	Status

	IgnoreList
	IgnoreAdd
	IgnoreRemove

	AccountRegister
	AccountLogin
	AccountLogout
	AccountEditUsername
	AccountEditPassword
	AccountImport
	AccountExport
	AccountDelete
	AccountInfo

	RoomList
	RoomCreate
	RoomJoin
	RoomImport
	RoomDelete

	Afk
	Msg
	Me
	Seen
	Announce

	SuperUsers
	SuperRename
	SuperExport
	SuperWhitelistInfo
	SuperWhitelistToggle
	SuperWhitelistAdd
	SuperWhitelistRemove
	SuperLimitInfo
	SuperLimitRate
	SuperLimitSession
	SuperRolesList
	SuperRolesAdd
	SuperRolesRevoke
	SuperRolesAssign
	SuperRolesRecolor

	UserList
	UserRename
	UserRecolor
	UserHide

	ModInfo
	ModKick
	ModBan
	ModUnban
	ModMute
	ModUnmute

	Pubkey

	// Chat is free text with no leading slash.
	Chat

	// Confirm is the bare "y" or "n" line consumed while a session is
	// awaiting an interactive owner-transfer confirmation.
	Confirm
)

// Command is the parsed form of one input line.
type Command struct {
	Kind Kind

	// Help holds the syntax-help text when Kind == Invalid.
	Help string

	Args []string // raw positional args, meaning depends on Kind

	// Populated fields, named per their most common use across Kinds.
	Target   string // username/room/file target
	Text     string // free-form trailing text (message body, reason)
	Duration string // raw duration spec, unparsed
	Role     string
	Hex      string
	Force    bool
	Confirm  bool // true = "y", false = "n", only meaningful for Kind == Confirm
}

// PermToken returns the dotted permission token for a restricted command,
// or "" if the command is not subject to a permission check.
func (c Command) PermToken() string {
	return kindToken[c.Kind]
}

var kindToken = map[Kind]string{
	Afk:      "afk",
	Msg:      "msg",
	Me:       "me",
	Seen:     "seen",
	Announce: "announce",

	SuperUsers:           "super.users",
	SuperRename:          "super.rename",
	SuperExport:          "super.export",
	SuperWhitelistInfo:   "super.whitelist.info",
	SuperWhitelistToggle: "super.whitelist.toggle",
	SuperWhitelistAdd:    "super.whitelist.add",
	SuperWhitelistRemove: "super.whitelist.remove",
	SuperLimitInfo:       "super.limit.info",
	SuperLimitRate:       "super.limit.rate",
	SuperLimitSession:    "super.limit.session",
	SuperRolesList:       "super.roles.list",
	SuperRolesAdd:        "super.roles.add",
	SuperRolesRevoke:     "super.roles.revoke",
	SuperRolesAssign:     "super.roles.assign",
	SuperRolesRecolor:    "super.roles.recolor",

	UserList:    "user.list",
	UserRename:  "user.rename",
	UserRecolor: "user.recolor",
	UserHide:    "user.hide",

	ModInfo:   "mod.info",
	ModKick:   "mod.kick",
	ModBan:    "mod.ban",
	ModUnban:  "mod.unban",
	ModMute:   "mod.mute",
	ModUnmute: "mod.unmute",
}

// RestrictedCommands is the complete permission namespace: every dotted
// token (and its parent prefixes) that can appear in a Roles grant list or
// be returned by PermToken.
var RestrictedCommands = map[string]bool{
	"afk": true, "msg": true, "me": true, "seen": true, "announce": true,

	"super": true, "super.users": true, "super.rename": true, "super.export": true,
	"super.whitelist": true, "super.whitelist.info": true, "super.whitelist.toggle": true,
	"super.whitelist.add": true, "super.whitelist.remove": true,
	"super.limit": true, "super.limit.info": true, "super.limit.rate": true, "super.limit.session": true,
	"super.roles": true, "super.roles.list": true, "super.roles.add": true, "super.roles.revoke": true,
	"super.roles.assign": true, "super.roles.recolor": true,

	"user": true, "user.list": true, "user.rename": true, "user.recolor": true, "user.hide": true,

	"mod": true, "mod.info": true, "mod.kick": true, "mod.ban": true, "mod.unban": true,
	"mod.mute": true, "mod.unmute": true,
}

// descriptions holds the one-line help text for each restricted token,
// shown in the InRoom /help output when the session is permitted to run it.
var descriptions = map[string]string{
	"afk":             "> /afk              Set yourself as away",
	"msg":              "> /msg <user> <msg> Send a private message",
	"me":               "> /me <msg>         Send an emote message",
	"seen":             "> /seen <user>      See when a user was last online",
	"announce":         "> /announce <msg>   Announce a room message, bypass ignores",
	"super":            "> /super            Administrator commands",
	"super.users":      "> /super users      Show all room user data",
	"super.rename":     "> /super rename     Changes room name",
	"super.export":     "> /super export     Saves room data",
	"super.whitelist":  "> /super whitelist  Manage room whitelist",
	"super.limit":      "> /super limit      Manage room rate limits",
	"super.roles":      "> /super roles      Manage room roles and permissions",
	"user":             "> /user             Manage user settings",
	"user.list":        "> /user list        Show all visible room users",
	"user.rename":      "> /user rename      Changes your name in the room",
	"user.recolor":     "> /user recolor     Changes your name color in the room",
	"user.hide":        "> /user hide        Hides you from /user list",
	"mod":              "> /mod              Use chat moderation tools",
	"mod.info":         "> /mod info         Show who is muted and banned",
	"mod.kick":         "> /mod kick         Kick users from the chat",
	"mod.mute":         "> /mod mute         Disable certain users from speaking",
	"mod.unmute":       "> /mod unmute       Allow certain users to speak again",
	"mod.ban":          "> /mod ban          Disable certain users from joining",
	"mod.unban":        "> /mod unban        Allow certain users to join again",
}

// commandOrder fixes the display order of descriptions in /help.
var commandOrder = []string{
	"afk", "msg", "me", "seen", "announce",
	"super", "super.users", "super.rename", "super.export",
	"super.whitelist", "super.whitelist.info", "super.whitelist.add", "super.whitelist.remove",
	"super.limit", "super.limit.info", "super.limit.rate", "super.limit.session",
	"super.roles", "super.roles.list", "super.roles.add", "super.roles.revoke",
	"super.roles.assign", "super.roles.recolor",
	"user", "user.list", "user.rename", "user.recolor", "user.hide",
	"mod", "mod.info", "mod.kick", "mod.ban", "mod.unban", "mod.mute", "mod.unmute",
}

var alwaysVisible = []string{
	"Available commands:",
	"> /help             Show this help menu",
	"> /ping             Check connection to the server",
	"> /quit             Exit the application",
	"> /leave            Leave your current room",
	"> /status           Show your current room info",
	"> /ignore           Manage ignore list",
}

// HelpGuest is the fixed help text for a Guest session.
const HelpGuest = `Available commands:
> /help             Show this help menu
> /ping             Check connection to the server
> /quit             Exit the application
> /account          Manage your account`

// HelpLoggedIn is the fixed help text for a LoggedIn session.
const HelpLoggedIn = `Available commands:
> /help             Show this help menu
> /ping             Check connection to the server
> /quit             Exit the application
> /account          Manage your account
> /room             Manage chat rooms
> /ignore           Manage ignore list`

// HelpInRoom builds the InRoom /help text from the session's permitted
// token set (as computed by the permission engine's expansion).
func HelpInRoom(allowed map[string]bool) string {
	lines := append([]string{}, alwaysVisible...)
	for _, tok := range commandOrder {
		if allowed[tok] {
			if desc, ok := descriptions[tok]; ok {
				lines = append(lines, desc)
			}
		}
	}
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

// ExpandGrants expands a role's raw grant list (e.g. Roles.User) into the
// full set of restricted tokens it covers: each granted token plus every
// restricted token beginning with "<token>.".
func ExpandGrants(grants []string) map[string]bool {
	out := make(map[string]bool)
	for _, g := range grants {
		out[g] = true
		prefix := g + "."
		for tok := range RestrictedCommands {
			if len(tok) > len(prefix) && tok[:len(prefix)] == prefix {
				out[tok] = true
			}
		}
	}
	return out
}

// SortedTokens returns the keys of a token set in sorted order, for
// building deterministic /CMDS lines.
func SortedTokens(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
