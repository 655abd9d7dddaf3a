package command

import (
	"fmt"
	"regexp"
	"strings"
)

// Parse tokenizes one line of client input into a Command. Lines with no
// leading "/" are Chat. A bare "y" or "n" is always parsed as Confirm,
// since a session awaiting owner-transfer confirmation consumes the next
// line itself rather than going through the dispatcher.
func Parse(line string) Command {
	trimmed := strings.TrimRight(line, "\r\n")

	if trimmed == "y" || trimmed == "n" {
		return Command{Kind: Confirm, Confirm: trimmed == "y"}
	}

	if !strings.HasPrefix(trimmed, "/") {
		return Command{Kind: Chat, Text: trimmed}
	}

	fields := strings.Fields(trimmed[1:])
	if len(fields) == 0 {
		return invalid("Unknown command. Type /help for a list of commands.")
	}

	switch fields[0] {
	case "help":
		return Command{Kind: Help}
	case "ping":
		if len(fields) < 2 {
			return invalid("Usage: /ping <client-ms>")
		}
		return Command{Kind: Ping, Args: fields[1:]}
	case "quit":
		return Command{Kind: Quit}
	case "leave":
		return Command{Kind: Leave}
	case "status":
		return Command{Kind: Status}
	case "ignore":
		return parseIgnore(fields[1:])
	case "account":
		return parseAccount(fields[1:])
	case "room":
		return parseRoom(fields[1:])
	case "afk":
		return Command{Kind: Afk}
	case "msg":
		return parseMsg(fields[1:])
	case "me":
		if len(fields) < 2 {
			return invalid("Usage: /me <msg>")
		}
		return Command{Kind: Me, Text: strings.Join(fields[1:], " ")}
	case "seen":
		if len(fields) < 2 {
			return invalid("Usage: /seen <user>")
		}
		return Command{Kind: Seen, Target: fields[1]}
	case "announce":
		if len(fields) < 2 {
			return invalid("Usage: /announce <msg>")
		}
		return Command{Kind: Announce, Text: strings.Join(fields[1:], " ")}
	case "super":
		return parseSuper(fields[1:])
	case "user":
		return parseUser(fields[1:])
	case "mod":
		return parseMod(fields[1:])
	case "pubkey":
		if len(fields) < 2 {
			return invalid("Usage: /pubkey <base64-key>")
		}
		return Command{Kind: Pubkey, Target: fields[1]}
	default:
		return invalid(fmt.Sprintf("Unknown command /%s. Type /help for a list of commands.", fields[0]))
	}
}

func invalid(help string) Command {
	return Command{Kind: Invalid, Help: help}
}

func parseIgnore(args []string) Command {
	if len(args) == 0 {
		return invalid("Usage: /ignore list|add <user...>|remove <user...>")
	}
	switch args[0] {
	case "list":
		return Command{Kind: IgnoreList}
	case "add":
		if len(args) < 2 {
			return invalid("Usage: /ignore add <user...>")
		}
		return Command{Kind: IgnoreAdd, Args: args[1:]}
	case "remove":
		if len(args) < 2 {
			return invalid("Usage: /ignore remove <user...>")
		}
		return Command{Kind: IgnoreRemove, Args: args[1:]}
	default:
		return invalid("Usage: /ignore list|add <user...>|remove <user...>")
	}
}

func parseAccount(args []string) Command {
	if len(args) == 0 {
		return invalid("Usage: /account register|login|logout|edit|import|export|delete|info")
	}
	switch args[0] {
	case "register":
		if len(args) < 3 {
			return invalid("Usage: /account register <user> <pass>")
		}
		return Command{Kind: AccountRegister, Target: args[1], Text: args[2]}
	case "login":
		if len(args) < 3 {
			return invalid("Usage: /account login <user> <pass>")
		}
		return Command{Kind: AccountLogin, Target: args[1], Text: args[2]}
	case "logout":
		return Command{Kind: AccountLogout}
	case "edit":
		if len(args) < 3 {
			return invalid("Usage: /account edit username|password <new-value>")
		}
		switch args[1] {
		case "username":
			return Command{Kind: AccountEditUsername, Target: args[2]}
		case "password":
			return Command{Kind: AccountEditPassword, Target: args[2]}
		default:
			return invalid("Usage: /account edit username|password <new-value>")
		}
	case "import":
		if len(args) < 2 {
			return invalid("Usage: /account import <file>")
		}
		return Command{Kind: AccountImport, Target: args[1]}
	case "export":
		return Command{Kind: AccountExport}
	case "delete":
		force := len(args) >= 2 && args[1] == "force"
		return Command{Kind: AccountDelete, Force: force}
	case "info":
		return Command{Kind: AccountInfo}
	default:
		return invalid("Usage: /account register|login|logout|edit|import|export|delete|info")
	}
}

func parseRoom(args []string) Command {
	if len(args) == 0 {
		return invalid("Usage: /room list|create <name> [whitelist]|join <name>|import <file>|delete <name> [force]")
	}
	switch args[0] {
	case "list":
		return Command{Kind: RoomList}
	case "create":
		if len(args) < 2 {
			return invalid("Usage: /room create <name> [whitelist]")
		}
		c := Command{Kind: RoomCreate, Target: args[1]}
		if len(args) >= 3 && args[2] == "whitelist" {
			c.Force = true
		}
		return c
	case "join":
		if len(args) < 2 {
			return invalid("Usage: /room join <name>")
		}
		return Command{Kind: RoomJoin, Target: args[1]}
	case "import":
		if len(args) < 2 {
			return invalid("Usage: /room import <file>")
		}
		return Command{Kind: RoomImport, Target: args[1]}
	case "delete":
		if len(args) < 2 {
			return invalid("Usage: /room delete <name> [force]")
		}
		c := Command{Kind: RoomDelete, Target: args[1]}
		c.Force = len(args) >= 3 && args[2] == "force"
		return c
	default:
		return invalid("Usage: /room list|create <name> [whitelist]|join <name>|import <file>|delete <name> [force]")
	}
}

func parseMsg(args []string) Command {
	if len(args) < 2 {
		return invalid("Usage: /msg <user> <msg>")
	}
	return Command{Kind: Msg, Target: args[0], Text: strings.Join(args[1:], " ")}
}

func parseSuper(args []string) Command {
	if len(args) == 0 {
		return invalid("Usage: /super users|rename|export|whitelist|limit|roles")
	}
	switch args[0] {
	case "users":
		return Command{Kind: SuperUsers}
	case "rename":
		if len(args) < 2 {
			return invalid("Usage: /super rename <name>")
		}
		return Command{Kind: SuperRename, Target: args[1]}
	case "export":
		c := Command{Kind: SuperExport}
		if len(args) >= 2 {
			c.Target = args[1]
		}
		return c
	case "whitelist":
		return parseSuperWhitelist(args[1:])
	case "limit":
		return parseSuperLimit(args[1:])
	case "roles":
		return parseSuperRoles(args[1:])
	default:
		return invalid("Usage: /super users|rename|export|whitelist|limit|roles")
	}
}

func parseSuperWhitelist(args []string) Command {
	if len(args) == 0 {
		return Command{Kind: SuperWhitelistInfo}
	}
	switch args[0] {
	case "info":
		return Command{Kind: SuperWhitelistInfo}
	case "toggle":
		return Command{Kind: SuperWhitelistToggle}
	case "add":
		if len(args) < 2 {
			return invalid("Usage: /super whitelist add <user>")
		}
		return Command{Kind: SuperWhitelistAdd, Target: args[1]}
	case "remove":
		if len(args) < 2 {
			return invalid("Usage: /super whitelist remove <user>")
		}
		return Command{Kind: SuperWhitelistRemove, Target: args[1]}
	default:
		return invalid("Usage: /super whitelist [info|toggle|add <user>|remove <user>]")
	}
}

func parseSuperLimit(args []string) Command {
	if len(args) == 0 {
		return Command{Kind: SuperLimitInfo}
	}
	switch args[0] {
	case "info":
		return Command{Kind: SuperLimitInfo}
	case "rate":
		if len(args) < 2 {
			return invalid("Usage: /super limit rate <n|*>")
		}
		return Command{Kind: SuperLimitRate, Text: args[1]}
	case "session":
		if len(args) < 2 {
			return invalid("Usage: /super limit session <n|*>")
		}
		return Command{Kind: SuperLimitSession, Text: args[1]}
	default:
		return invalid("Usage: /super limit [info|rate <n|*>|session <n|*>]")
	}
}

func parseSuperRoles(args []string) Command {
	if len(args) == 0 {
		return Command{Kind: SuperRolesList}
	}
	switch args[0] {
	case "list":
		return Command{Kind: SuperRolesList}
	case "add":
		if len(args) < 3 {
			return invalid("Usage: /super roles add <role> <cmd...>")
		}
		return Command{Kind: SuperRolesAdd, Role: args[1], Args: args[2:]}
	case "revoke":
		if len(args) < 3 {
			return invalid("Usage: /super roles revoke <role> <cmd...>")
		}
		return Command{Kind: SuperRolesRevoke, Role: args[1], Args: args[2:]}
	case "assign":
		if len(args) < 3 {
			return invalid("Usage: /super roles assign <role> <user...>")
		}
		return Command{Kind: SuperRolesAssign, Role: args[1], Args: args[2:]}
	case "recolor":
		if len(args) < 3 {
			return invalid("Usage: /super roles recolor <role> <#hex>")
		}
		return Command{Kind: SuperRolesRecolor, Role: args[1], Hex: args[2]}
	default:
		return invalid("Usage: /super roles [list|add|revoke|assign|recolor]")
	}
}

func parseUser(args []string) Command {
	if len(args) == 0 {
		return Command{Kind: UserList}
	}
	switch args[0] {
	case "list":
		return Command{Kind: UserList}
	case "rename":
		if len(args) < 2 {
			return invalid("Usage: /user rename <name|*|reset> [target-user]")
		}
		c := Command{Kind: UserRename, Text: args[1]}
		if len(args) >= 3 {
			c.Target = args[2]
		}
		return c
	case "recolor":
		if len(args) < 2 {
			return invalid("Usage: /user recolor <#hex|*|reset> [target-user]")
		}
		c := Command{Kind: UserRecolor, Hex: args[1]}
		if len(args) >= 3 {
			c.Target = args[2]
		}
		return c
	case "hide":
		return Command{Kind: UserHide}
	default:
		return invalid("Usage: /user list|rename|recolor|hide")
	}
}

func parseMod(args []string) Command {
	if len(args) == 0 {
		return Command{Kind: ModInfo}
	}
	switch args[0] {
	case "info":
		return Command{Kind: ModInfo}
	case "kick":
		if len(args) < 2 {
			return invalid("Usage: /mod kick <user> [reason]")
		}
		c := Command{Kind: ModKick, Target: args[1]}
		if len(args) >= 3 {
			c.Text = strings.Join(args[2:], " ")
		}
		return c
	case "ban":
		if len(args) < 2 {
			return invalid("Usage: /mod ban <user> [dur] [reason]")
		}
		c := Command{Kind: ModBan, Target: args[1]}
		rest := args[2:]
		if len(rest) > 0 && durationLike(rest[0]) {
			c.Duration = rest[0]
			rest = rest[1:]
		} else {
			c.Duration = "*"
		}
		if len(rest) > 0 {
			c.Text = strings.Join(rest, " ")
		}
		return c
	case "unban":
		if len(args) < 2 {
			return invalid("Usage: /mod unban <user>")
		}
		return Command{Kind: ModUnban, Target: args[1]}
	case "mute":
		if len(args) < 2 {
			return invalid("Usage: /mod mute <user> [dur] [reason]")
		}
		c := Command{Kind: ModMute, Target: args[1]}
		rest := args[2:]
		if len(rest) > 0 && durationLike(rest[0]) {
			c.Duration = rest[0]
			rest = rest[1:]
		} else {
			c.Duration = "*"
		}
		if len(rest) > 0 {
			c.Text = strings.Join(rest, " ")
		}
		return c
	case "unmute":
		if len(args) < 2 {
			return invalid("Usage: /mod unmute <user>")
		}
		return Command{Kind: ModUnmute, Target: args[1]}
	default:
		return invalid("Usage: /mod info|kick|ban|unban|mute|unmute")
	}
}

var durationRe = regexp.MustCompile(`^(\d+d)?(\d+h)?(\d+m)?(\d+s)?$`)

// durationLike reports whether a token could plausibly be a duration spec
// (used to decide whether the word following a ban/mute target is a
// duration or the start of the reason text).
func durationLike(s string) bool {
	if s == "*" {
		return true
	}
	return s != "" && durationRe.MatchString(s)
}

// DurationFormatPasses validates a duration spec string.
func DurationFormatPasses(spec string) bool {
	if spec == "*" {
		return true
	}
	return durationRe.MatchString(spec) && spec != ""
}

// ParseDuration converts a validated duration spec to seconds. "*" is 0
// (permanent). Mixed/unknown units must be rejected by DurationFormatPasses
// before calling this.
func ParseDuration(spec string) (uint64, error) {
	if spec == "*" {
		return 0, nil
	}
	var secs uint64
	var num strings.Builder
	for _, ch := range spec {
		if ch >= '0' && ch <= '9' {
			num.WriteRune(ch)
			continue
		}
		if num.Len() == 0 {
			return 0, fmt.Errorf("invalid duration specifier")
		}
		var val uint64
		fmt.Sscanf(num.String(), "%d", &val)
		num.Reset()
		switch ch {
		case 'd':
			secs += val * 86400
		case 'h':
			secs += val * 3600
		case 'm':
			secs += val * 60
		case 's':
			secs += val
		default:
			return 0, fmt.Errorf("invalid duration specifier")
		}
	}
	if num.Len() != 0 {
		return 0, fmt.Errorf("duration spec ended unexpectedly")
	}
	return secs, nil
}
