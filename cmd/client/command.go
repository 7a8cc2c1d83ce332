package main

import (
	"fmt"
	"strings"
)

type commandKind string

const (
	cmdRequest  commandKind = "request"
	cmdAccept   commandKind = "accept"
	cmdReject   commandKind = "reject"
	cmdCancel   commandKind = "cancel"
	cmdDirect   commandKind = "dm"
	cmdGroup    commandKind = "group"
	cmdJoin     commandKind = "join"
	cmdSearch   commandKind = "search"
	cmdIncoming commandKind = "incoming"
)

// arity is the number of single-word arguments before the free text.
var arity = map[commandKind]int{
	cmdRequest:  1,
	cmdAccept:   1,
	cmdReject:   1,
	cmdCancel:   1,
	cmdDirect:   1,
	cmdGroup:    1,
	cmdJoin:     1,
	cmdSearch:   1,
	cmdIncoming: 0,
}

var withText = map[commandKind]bool{cmdDirect: true, cmdGroup: true}

type command struct {
	kind   commandKind
	target string
	text   string
}

const usage = `/request <user>   /accept|/reject|/cancel <request id>
/dm <user> <text> /group <group id> <text>  /join <group id>
/search <email>   /incoming`

func parseCommand(line string) (command, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return command{}, fmt.Errorf("commands start with '/'\n%s", usage)
	}
	fields := strings.Fields(line[1:])
	if len(fields) == 0 {
		return command{}, fmt.Errorf("empty command\n%s", usage)
	}

	kind := commandKind(fields[0])
	n, ok := arity[kind]
	if !ok {
		return command{}, fmt.Errorf("unknown command %q\n%s", fields[0], usage)
	}
	args := fields[1:]
	if len(args) < n || (withText[kind] && len(args) == n) {
		return command{}, fmt.Errorf("missing argument for /%s\n%s", kind, usage)
	}

	cmd := command{kind: kind}
	if n > 0 {
		cmd.target = args[0]
	}
	if withText[kind] {
		cmd.text = strings.Join(args[n:], " ")
	}
	return cmd, nil
}
