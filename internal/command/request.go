package command

import "maps"

type Action string

const (
	None            Action = ""
	OpenApplication Action = "open-application"
	OpenFolder      Action = "open-folder"
	OpenURL         Action = "open-url"
	SystemCommand   Action = "system-command"
	SendEmail       Action = "send-email"
)

func (a Action) Valid() bool {
	switch a {
	case OpenApplication, OpenFolder, OpenURL, SystemCommand, SendEmail:
		return true
	}
	return false
}

// Argument keys carried by a Request, one per action.
const (
	ArgName    = "name"
	ArgCommand = "command"
	ArgURL     = "url"
	ArgFolder  = "folder"
	ArgTo      = "to"
	ArgSubject = "subject"
	ArgBody    = "body"
)

// Request is a classified transcript. A Request with no Action is the
// unrecognized result and only carries its Reply.
type Request struct {
	Action Action
	Args   map[string]string
	// Reply is what the operator is told once the action went through.
	Reply string
	// Label names the target in capability-limited messages.
	Label string
}

func (r Request) Recognized() bool {
	return r.Action != None
}

func (r Request) Arg(key string) string {
	return r.Args[key]
}

func (r Request) clone() Request {
	r.Args = maps.Clone(r.Args)
	return r
}
