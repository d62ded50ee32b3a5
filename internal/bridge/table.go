package bridge

import (
	"fmt"
	"maps"
	"os"

	"gopkg.in/yaml.v3"
)

// Table maps friendly names to the argv the host runs on one platform.
type Table struct {
	Apps    map[string][]string `yaml:"apps"`
	Aliases map[string]string   `yaml:"aliases"`
	Power   map[string][]string `yaml:"power"`
	Folders map[string]string   `yaml:"folders"`
	Opener  []string            `yaml:"opener"`
}

var appAliases = map[string]string{
	"calc":           "calculator",
	"explorer":       "file-explorer",
	"files":          "file-explorer",
	"cmd":            "command-prompt",
	"terminal":       "command-prompt",
	"taskmgr":        "task-manager",
	"control":        "control-panel",
	"settings":       "control-panel",
	"mspaint":        "paint",
	"winword":        "word",
	"powerpnt":       "powerpoint",
	"text-editor":    "notepad",
	"system-monitor": "task-manager",
	"reboot":         "restart",
	"suspend":        "sleep",
}

var folderDirs = map[string]string{
	"desktop":   "Desktop",
	"documents": "Documents",
	"downloads": "Downloads",
	"pictures":  "Pictures",
	"videos":    "Videos",
	"music":     "Music",
}

// DefaultTable returns the built-in table for goos. Unknown platforms get
// the linux table.
func DefaultTable(goos string) Table {
	t := Table{
		Aliases: maps.Clone(appAliases),
		Folders: maps.Clone(folderDirs),
	}

	switch goos {
	case "windows":
		t.Apps = map[string][]string{
			"calculator":     {"calc"},
			"notepad":        {"notepad"},
			"file-explorer":  {"explorer"},
			"command-prompt": {"cmd", "/c", "start", "cmd"},
			"task-manager":   {"taskmgr"},
			"control-panel":  {"control"},
			"paint":          {"mspaint"},
			"word":           {"cmd", "/c", "start", "winword"},
			"excel":          {"cmd", "/c", "start", "excel"},
			"powerpoint":     {"cmd", "/c", "start", "powerpnt"},
		}
		t.Power = map[string][]string{
			"shutdown": {"shutdown", "/s", "/t", "0"},
			"restart":  {"shutdown", "/r", "/t", "0"},
			"sleep":    {"rundll32.exe", "powrprof.dll,SetSuspendState", "0,1,0"},
			"lock":     {"rundll32.exe", "user32.dll,LockWorkStation"},
		}
		t.Opener = []string{"rundll32", "url.dll,FileProtocolHandler"}

	case "darwin":
		t.Apps = map[string][]string{
			"calculator":     {"open", "-a", "Calculator"},
			"notepad":        {"open", "-a", "TextEdit"},
			"file-explorer":  {"open", "-a", "Finder"},
			"command-prompt": {"open", "-a", "Terminal"},
			"task-manager":   {"open", "-a", "Activity Monitor"},
			"control-panel":  {"open", "-a", "System Settings"},
			"paint":          {"open", "-a", "Preview"},
			"word":           {"open", "-a", "Microsoft Word"},
			"excel":          {"open", "-a", "Microsoft Excel"},
			"powerpoint":     {"open", "-a", "Microsoft PowerPoint"},
		}
		t.Power = map[string][]string{
			"shutdown": {"osascript", "-e", `tell app "System Events" to shut down`},
			"restart":  {"osascript", "-e", `tell app "System Events" to restart`},
			"sleep":    {"pmset", "sleepnow"},
			"lock":     {"pmset", "displaysleepnow"},
		}
		t.Folders["videos"] = "Movies"
		t.Opener = []string{"open"}

	default:
		t.Apps = map[string][]string{
			"calculator":     {"gnome-calculator"},
			"notepad":        {"gedit"},
			"file-explorer":  {"nautilus"},
			"command-prompt": {"x-terminal-emulator"},
			"task-manager":   {"gnome-system-monitor"},
			"control-panel":  {"gnome-control-center"},
			"paint":          {"pinta"},
			"word":           {"libreoffice", "--writer"},
			"excel":          {"libreoffice", "--calc"},
			"powerpoint":     {"libreoffice", "--impress"},
		}
		t.Power = map[string][]string{
			"shutdown": {"systemctl", "poweroff"},
			"restart":  {"systemctl", "reboot"},
			"sleep":    {"systemctl", "suspend"},
			"lock":     {"loginctl", "lock-session"},
		}
		t.Opener = []string{"xdg-open"}
	}

	return t
}

// LoadTable overlays the YAML file at path on the defaults for goos. Power
// entries may only replace the argv of a known command; new power commands
// are refused.
func LoadTable(path, goos string) (Table, error) {
	t := DefaultTable(goos)
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read table: %w", err)
	}

	var over Table
	if err := yaml.Unmarshal(data, &over); err != nil {
		return Table{}, fmt.Errorf("parse table %s: %w", path, err)
	}

	for name, argv := range over.Power {
		if _, ok := t.Power[name]; !ok {
			return Table{}, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
		}
		if len(argv) == 0 {
			return Table{}, fmt.Errorf("power command %s: empty argv", name)
		}
		t.Power[name] = argv
	}
	for name, argv := range over.Apps {
		if len(argv) == 0 {
			return Table{}, fmt.Errorf("application %s: empty argv", name)
		}
		t.Apps[name] = argv
	}
	for name, dir := range over.Folders {
		if _, ok := t.Folders[name]; !ok {
			return Table{}, fmt.Errorf("%w: %s", ErrUnknownFolder, name)
		}
		t.Folders[name] = dir
	}
	maps.Copy(t.Aliases, over.Aliases)
	if len(over.Opener) > 0 {
		t.Opener = over.Opener
	}

	return t, nil
}
