package dispatch

import (
	"errors"
	"fmt"
	"strings"
)

// Callback verbs. Every inline button encodes "verb:ref[:args...]" where ref
// is the channel's short reference.
const (
	VerbModerate  = "mod"  // open a channel's moderation queue
	VerbApprove   = "app"  // approve the shown post
	VerbReject    = "rej"  // reject the shown post
	VerbBan       = "ban"  // ban the submitter and drop the post
	VerbSkip      = "next" // skip to the next post
	VerbSelect    = "sel"  // bind a staged submission to a channel
	VerbSendAll   = "all"  // send a staged submission to every channel
	VerbSettings  = "set"  // open the settings menu
	VerbConfigure = "cfg"  // toggle or cycle a setting
	VerbSave      = "sav"  // close the settings menu
	VerbInput     = "inp"  // ask for a typed setting value
	VerbUnbanMenu = "ubc"  // list banned users
	VerbUnban     = "unb"  // unban one user
	VerbAudit     = "aud"  // show recent moderation activity
	VerbTop       = "top"  // show the submitter leaderboard
)

// ErrMalformedCallback is returned for callback data this bot never issued.
var ErrMalformedCallback = errors.New("malformed callback data")

// Command is one parsed callback: a verb, the channel short reference it
// targets, and any trailing arguments.
type Command struct {
	Verb string
	Ref  string
	Args []string
}

// Arg returns the i-th trailing argument or an empty string.
func (c Command) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// Parse splits raw callback data into a Command. VerbSendAll is the only
// verb that carries no channel reference.
func Parse(data string) (Command, error) {
	parts := strings.Split(data, ":")
	if len(parts) == 0 || parts[0] == "" {
		return Command{}, ErrMalformedCallback
	}

	cmd := Command{Verb: parts[0]}
	switch cmd.Verb {
	case VerbSendAll:
		cmd.Args = parts[1:]
		return cmd, nil
	case VerbModerate, VerbApprove, VerbReject, VerbBan, VerbSkip, VerbSelect,
		VerbSettings, VerbConfigure, VerbSave, VerbInput, VerbUnbanMenu,
		VerbUnban, VerbAudit, VerbTop:
		if len(parts) < 2 || parts[1] == "" {
			return Command{}, fmt.Errorf("verb %q without reference: %w", cmd.Verb, ErrMalformedCallback)
		}
		cmd.Ref = parts[1]
		cmd.Args = parts[2:]
		return cmd, nil
	default:
		return Command{}, fmt.Errorf("verb %q: %w", cmd.Verb, ErrMalformedCallback)
	}
}

// Data renders a Command back into callback data.
func Data(verb, ref string, args ...string) string {
	parts := append([]string{verb, ref}, args...)
	if ref == "" {
		parts = append([]string{verb}, args...)
	}
	return strings.Join(parts, ":")
}
