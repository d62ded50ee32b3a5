// Package config reads daemon and bridge settings from the environment.
// Command-line flags are applied on top by the binaries.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Bridge modes of the daemon.
const (
	BridgeOff      = "off"
	BridgeEmbedded = "embedded"
	BridgeSocket   = "socket"
)

type Daemon struct {
	Addr          string
	ControlSocket string
	BridgeMode    string
	BridgeSocket  string
	// Proxy is an optional SOCKS5 host:port for the network voice.
	Proxy          string
	ElevenLabs     ElevenLabs
	SpeakResponses bool
	// Recognizer is "browser" or "mic".
	Recognizer   string
	WhisperModel string
	// LocalVoice is the fallback after ElevenLabs: "browser", "espeak" or
	// "none".
	LocalVoice string
	Duck       bool
	Bridge     Bridge
}

type ElevenLabs struct {
	APIKey  string
	VoiceID string
	ModelID string
}

type Bridge struct {
	Socket     string
	Table      string
	StrictApps bool
}

// LoadDaemon reads the daemon configuration from the environment without
// validating it.
func LoadDaemon() *Daemon {
	return &Daemon{
		Addr:           getEnv("JARVIS_ADDR", "127.0.0.1:8765"),
		ControlSocket:  getEnv("JARVIS_CONTROL_SOCKET", filepath.Join(RuntimeDir(), "jarvis.sock")),
		BridgeMode:     getEnv("JARVIS_BRIDGE", BridgeSocket),
		BridgeSocket:   getEnv("JARVIS_BRIDGE_SOCKET", DefaultBridgeSocket()),
		Proxy:          getEnv("JARVIS_PROXY", ""),
		SpeakResponses: getEnvBool("JARVIS_SPEAK", true),
		Recognizer:     getEnv("JARVIS_RECOGNIZER", "browser"),
		WhisperModel:   getEnv("JARVIS_WHISPER_MODEL", ""),
		LocalVoice:     getEnv("JARVIS_LOCAL_VOICE", "browser"),
		Duck:           getEnvBool("JARVIS_DUCK", true),
		ElevenLabs: ElevenLabs{
			APIKey:  getEnv("ELEVENLABS_API_KEY", ""),
			VoiceID: getEnv("ELEVENLABS_VOICE_ID", ""),
			ModelID: getEnv("ELEVENLABS_MODEL_ID", ""),
		},
		Bridge: *LoadBridge(),
	}
}

func (c *Daemon) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("JARVIS_ADDR cannot be empty")
	}
	if c.ControlSocket == "" {
		return fmt.Errorf("JARVIS_CONTROL_SOCKET cannot be empty")
	}

	switch c.BridgeMode {
	case BridgeOff, BridgeEmbedded:
	case BridgeSocket:
		if c.BridgeSocket == "" {
			return fmt.Errorf("JARVIS_BRIDGE_SOCKET cannot be empty in socket mode")
		}
	default:
		return fmt.Errorf("bridge mode must be one of off, embedded, socket; got %q", c.BridgeMode)
	}

	switch c.Recognizer {
	case "browser":
	case "mic":
		if c.WhisperModel == "" {
			return fmt.Errorf("JARVIS_WHISPER_MODEL is required with the mic recognizer")
		}
	default:
		return fmt.Errorf("recognizer must be browser or mic; got %q", c.Recognizer)
	}

	switch c.LocalVoice {
	case "browser", "espeak", "none":
	default:
		return fmt.Errorf("local voice must be browser, espeak or none; got %q", c.LocalVoice)
	}
	return nil
}

func LoadBridge() *Bridge {
	return &Bridge{
		Socket:     getEnv("JARVIS_BRIDGE_SOCKET", DefaultBridgeSocket()),
		Table:      getEnv("JARVIS_TABLE", ""),
		StrictApps: getEnvBool("JARVIS_STRICT_APPS", false),
	}
}

func (c *Bridge) Validate() error {
	if c.Socket == "" {
		return fmt.Errorf("JARVIS_BRIDGE_SOCKET cannot be empty")
	}
	if c.Table != "" {
		if _, err := os.Stat(c.Table); err != nil {
			return fmt.Errorf("table file: %w", err)
		}
	}
	return nil
}

// RuntimeDir is where the unix sockets live.
func RuntimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}

func DefaultBridgeSocket() string {
	return filepath.Join(RuntimeDir(), "jarvis-bridge.sock")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
