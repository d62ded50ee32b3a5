package command

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// Well-known folders the bridge can resolve under the user's home.
var Folders = []string{"desktop", "documents", "downloads", "pictures", "videos", "music"}

type rule func(text string) (Request, bool)

// Order matters: the first rule that matches wins.
var rules = []rule{
	webSearch,
	when(app("calculator", "Calculator"), "calculator", "calc"),
	when(site("https://www.google.com", "Chrome", "Chrome browser"), "chrome", "browser"),
	composeEmail,
	when(site("https://mail.google.com", "Gmail", "Gmail"), "gmail", "email"),
	when(site("https://web.whatsapp.com", "WhatsApp", "WhatsApp Web"), "whatsapp", "whats app"),
	when(site("https://www.messenger.com", "Messenger", "Messenger"), "messenger"),
	when(site("https://www.facebook.com", "Facebook", "Facebook"), "facebook"),
	when(site("https://open.spotify.com", "Spotify", "Spotify"), "spotify"),
	when(site("https://calendar.google.com", "Calendar", "Calendar"), "calendar"),
	when(app("notepad", "Notepad"), "notepad", "text editor"),
	when(app("word", "Word"), "microsoft word", "word document"),
	when(app("excel", "Excel"), "excel", "spreadsheet"),
	when(app("powerpoint", "PowerPoint"), "powerpoint", "presentation"),
	when(app("paint", "Paint"), "paint"),
	when(app("task-manager", "Task Manager"), "task manager"),
	when(app("command-prompt", "Command Prompt"), "command prompt", "terminal", "powershell"),
	when(app("control-panel", "Control Panel"), "control panel", "settings"),
	namedFolder,
	when(app("file-explorer", "File Explorer"), "file explorer", "files", "folder"),
	when(power("shutdown", "Shutdown", "Shutting down system"), "shutdown", "shut down", "power off"),
	when(power("restart", "Restart", "Restarting system"), "restart", "reboot"),
	when(power("sleep", "Sleep", "Putting system to sleep"), "sleep", "suspend"),
	lockScreen,
}

// Interpret classifies a transcript. It is a pure function: the same text
// always yields the same Request, and it never fails.
func Interpret(text string) Request {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, r := range rules {
		if req, ok := r(t); ok {
			return req
		}
	}
	return Request{
		Reply: fmt.Sprintf("Command \"%s\" processed. Limited system access without the desktop bridge.", text),
	}
}

func when(tmpl Request, fragments ...string) rule {
	return func(t string) (Request, bool) {
		if !containsAny(t, fragments...) {
			return Request{}, false
		}
		return tmpl.clone(), true
	}
}

func containsAny(t string, fragments ...string) bool {
	for _, f := range fragments {
		if strings.Contains(t, f) {
			return true
		}
	}
	return false
}

func app(name, label string) Request {
	return Request{
		Action: OpenApplication,
		Args:   map[string]string{ArgName: name},
		Reply:  "Opening " + label,
		Label:  label,
	}
}

func site(u, label, noun string) Request {
	return Request{
		Action: OpenURL,
		Args:   map[string]string{ArgURL: u},
		Reply:  "Opening " + noun,
		Label:  label,
	}
}

func power(cmd, label, reply string) Request {
	return Request{
		Action: SystemCommand,
		Args:   map[string]string{ArgCommand: cmd},
		Reply:  reply,
		Label:  label,
	}
}

// lockScreen matches "lock" as a whole word, never inside "clock" or "unlock".
func lockScreen(t string) (Request, bool) {
	if !slices.Contains(strings.Fields(t), "lock") {
		return Request{}, false
	}
	return power("lock", "Lock", "Locking workstation"), true
}

var searchTriggers = []string{"search", "google", "for", "on"}

func webSearch(t string) (Request, bool) {
	if !strings.Contains(t, "search") || !containsAny(t, "google", "for") {
		return Request{}, false
	}

	var words []string
	for _, w := range strings.Fields(t) {
		if !slices.Contains(searchTriggers, w) {
			words = append(words, w)
		}
	}
	query := strings.Join(words, " ")
	if query == "" {
		return site("https://www.google.com", "Google", "Google"), true
	}

	return Request{
		Action: OpenURL,
		Args:   map[string]string{ArgURL: "https://www.google.com/search?q=" + url.QueryEscape(query)},
		Reply:  "Searching Google for " + query,
		Label:  "Google search",
	}, true
}

var emailRe = regexp.MustCompile(`(?:send|write|compose) (?:an? )?(?:e-?)?mail to (.+?)(?: (about|regarding|saying) (.+))?$`)

var spokenAddress = strings.NewReplacer(" at ", "@", " dot ", ".", " ", "")

func composeEmail(t string) (Request, bool) {
	m := emailRe.FindStringSubmatch(t)
	if m == nil {
		return Request{}, false
	}

	to := spokenAddress.Replace(strings.TrimSpace(m[1]))
	var subject, body string
	if m[2] == "saying" {
		body = m[3]
	} else {
		subject = m[3]
	}

	return Request{
		Action: SendEmail,
		Args: map[string]string{
			ArgTo:      to,
			ArgSubject: subject,
			ArgBody:    body,
		},
		Reply: "Composing email to " + to,
		Label: "Email",
	}, true
}

func namedFolder(t string) (Request, bool) {
	if !containsAny(t, "folder", "open") {
		return Request{}, false
	}
	for _, f := range Folders {
		if strings.Contains(t, f) {
			label := strings.ToUpper(f[:1]) + f[1:]
			return Request{
				Action: OpenFolder,
				Args:   map[string]string{ArgFolder: f},
				Reply:  "Opening " + label + " folder",
				Label:  label + " folder",
			}, true
		}
	}
	return Request{}, false
}
