package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpretRules(t *testing.T) {
	tests := []struct {
		text   string
		action Action
		key    string
		value  string
		reply  string
	}{
		{"open calculator", OpenApplication, ArgName, "calculator", "Opening Calculator"},
		{"Open Calc please", OpenApplication, ArgName, "calculator", "Opening Calculator"},
		{"open chrome browser", OpenURL, ArgURL, "https://www.google.com", "Opening Chrome browser"},
		{"open gmail", OpenURL, ArgURL, "https://mail.google.com", "Opening Gmail"},
		{"open whatsapp web", OpenURL, ArgURL, "https://web.whatsapp.com", "Opening WhatsApp Web"},
		{"open whats app", OpenURL, ArgURL, "https://web.whatsapp.com", "Opening WhatsApp Web"},
		{"open messenger", OpenURL, ArgURL, "https://www.messenger.com", "Opening Messenger"},
		{"open facebook", OpenURL, ArgURL, "https://www.facebook.com", "Opening Facebook"},
		{"open spotify", OpenURL, ArgURL, "https://open.spotify.com", "Opening Spotify"},
		{"open calendar", OpenURL, ArgURL, "https://calendar.google.com", "Opening Calendar"},
		{"open notepad", OpenApplication, ArgName, "notepad", "Opening Notepad"},
		{"launch the text editor", OpenApplication, ArgName, "notepad", "Opening Notepad"},
		{"new word document", OpenApplication, ArgName, "word", "Opening Word"},
		{"open excel", OpenApplication, ArgName, "excel", "Opening Excel"},
		{"open powerpoint", OpenApplication, ArgName, "powerpoint", "Opening PowerPoint"},
		{"open task manager", OpenApplication, ArgName, "task-manager", "Opening Task Manager"},
		{"open powershell", OpenApplication, ArgName, "command-prompt", "Opening Command Prompt"},
		{"open system settings", OpenApplication, ArgName, "control-panel", "Opening Control Panel"},
		{"open file explorer", OpenApplication, ArgName, "file-explorer", "Opening File Explorer"},
		{"show my files", OpenApplication, ArgName, "file-explorer", "Opening File Explorer"},
		{"open downloads folder", OpenFolder, ArgFolder, "downloads", "Opening Downloads folder"},
		{"open desktop", OpenFolder, ArgFolder, "desktop", "Opening Desktop folder"},
		{"shutdown system", SystemCommand, ArgCommand, "shutdown", "Shutting down system"},
		{"power off", SystemCommand, ArgCommand, "shutdown", "Shutting down system"},
		{"reboot the machine", SystemCommand, ArgCommand, "restart", "Restarting system"},
		{"go to sleep", SystemCommand, ArgCommand, "sleep", "Putting system to sleep"},
		{"lock the computer", SystemCommand, ArgCommand, "lock", "Locking workstation"},
		{"lock", SystemCommand, ArgCommand, "lock", "Locking workstation"},
		{"Lock", SystemCommand, ArgCommand, "lock", "Locking workstation"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			req := Interpret(tt.text)
			require.True(t, req.Recognized())
			assert.Equal(t, tt.action, req.Action)
			assert.Equal(t, tt.value, req.Arg(tt.key))
			assert.Equal(t, tt.reply, req.Reply)
			assert.NotEmpty(t, req.Label)
		})
	}
}

func TestInterpretWebSearch(t *testing.T) {
	t.Run("query extracted", func(t *testing.T) {
		req := Interpret("Search Google for golang tutorials")
		assert.Equal(t, OpenURL, req.Action)
		assert.Equal(t, "https://www.google.com/search?q=golang+tutorials", req.Arg(ArgURL))
		assert.Equal(t, "Searching Google for golang tutorials", req.Reply)
	})

	t.Run("search wins over later rules", func(t *testing.T) {
		req := Interpret("search for calculator apps")
		assert.Equal(t, OpenURL, req.Action)
		assert.Equal(t, "https://www.google.com/search?q=calculator+apps", req.Arg(ArgURL))
	})

	t.Run("trailing on google stripped", func(t *testing.T) {
		req := Interpret("search for cats on google")
		assert.Equal(t, "https://www.google.com/search?q=cats", req.Arg(ArgURL))
		assert.Equal(t, "Searching Google for cats", req.Reply)
	})

	t.Run("empty query opens google", func(t *testing.T) {
		req := Interpret("search google")
		assert.Equal(t, "https://www.google.com", req.Arg(ArgURL))
	})

	t.Run("search alone is not a web search", func(t *testing.T) {
		req := Interpret("search")
		assert.False(t, req.Recognized())
	})
}

func TestInterpretEmail(t *testing.T) {
	req := Interpret("Send email to John about the meeting")
	require.Equal(t, SendEmail, req.Action)
	assert.Equal(t, "john", req.Arg(ArgTo))
	assert.Equal(t, "the meeting", req.Arg(ArgSubject))
	assert.Empty(t, req.Arg(ArgBody))

	req = Interpret("send an email to jane at example dot com saying running late")
	require.Equal(t, SendEmail, req.Action)
	assert.Equal(t, "jane@example.com", req.Arg(ArgTo))
	assert.Empty(t, req.Arg(ArgSubject))
	assert.Equal(t, "running late", req.Arg(ArgBody))
	assert.Equal(t, "Composing email to jane@example.com", req.Reply)
}

func TestInterpretLockNeedsWholeWord(t *testing.T) {
	for _, text := range []string{"what time is it on the clock", "block that number", "unlock"} {
		req := Interpret(text)
		assert.NotEqual(t, SystemCommand, req.Action, text)
	}
}

func TestInterpretUnrecognized(t *testing.T) {
	for _, text := range []string{"What's the weather like today?", "play my favorite playlist", ""} {
		req := Interpret(text)
		assert.False(t, req.Recognized())
		assert.Equal(t, `Command "`+text+`" processed. Limited system access without the desktop bridge.`, req.Reply)
	}
}

func TestInterpretDeterministic(t *testing.T) {
	for _, text := range []string{"open calculator", "search google for cats", "open music folder", "hello"} {
		first := Interpret(text)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, Interpret(text))
		}
	}
}

func TestInterpretDoesNotShareArgs(t *testing.T) {
	a := Interpret("open calculator")
	a.Args[ArgName] = "mutated"

	b := Interpret("open calculator")
	assert.Equal(t, "calculator", b.Arg(ArgName))
}

func TestMailtoURL(t *testing.T) {
	got := MailtoURL("john@example.com", "Lunch & coffee?", "It's at 1pm (maybe)!")
	assert.Equal(t, "mailto:john@example.com?subject=Lunch%20%26%20coffee%3F&body=It's%20at%201pm%20(maybe)!", got)
}

func TestActionValid(t *testing.T) {
	assert.True(t, OpenFolder.Valid())
	assert.False(t, None.Valid())
	assert.False(t, Action("format-disk").Valid())
}
