package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	log "log/slog"

	"jarvis/internal/assistant"
	"jarvis/internal/audio"
	"jarvis/internal/audio/capture"
	"jarvis/internal/bridge"
	"jarvis/internal/config"
	"jarvis/internal/dispatch"
	"jarvis/internal/ipc"
	"jarvis/internal/logging"
	"jarvis/internal/notify"
	"jarvis/internal/playback"
	"jarvis/internal/proxy"
	"jarvis/internal/speech"
	"jarvis/internal/tts"
	"jarvis/internal/voice"
	"jarvis/internal/web"
	"jarvis/pkg/stt"
)

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	addr := cli.StringP("addr", "a", "", "Web UI listen address")
	bridgeMode := cli.StringP("bridge", "b", "", "Bridge mode: off, embedded or socket (the socket is checked once at startup; restart jarvisd after starting jarvis-bridge)")
	bridgeSocket := cli.String("bridge-socket", "", "Bridge socket path")
	table := cli.StringP("table", "t", "", "Platform table override (embedded bridge)")
	strictApps := cli.Bool("strict-apps", false, "Only launch applications listed in the table (embedded bridge)")
	proxyAddr := cli.StringP("proxy", "p", "", "SOCKS5 proxy for ElevenLabs")
	recognizer := cli.StringP("recognizer", "r", "", "Speech recognizer: browser or mic")
	model := cli.StringP("model", "m", "", "Whisper model path for the mic recognizer")
	localVoice := cli.String("local-voice", "", "Fallback voice: browser, espeak or none")
	quiet := cli.BoolP("quiet", "q", false, "Do not speak command responses")
	cli.Parse()

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logging.Setup(os.Stdout, level)

	log.Info("Booting up")

	if err := godotenv.Load(*envFile); err != nil {
		log.Debug("No env file loaded", "path", *envFile, "err", err)
	}

	cfg := config.LoadDaemon()
	set := func(name string, dst *string, v string) {
		if cli.CommandLine.Changed(name) {
			*dst = v
		}
	}
	set("addr", &cfg.Addr, *addr)
	set("bridge", &cfg.BridgeMode, *bridgeMode)
	set("bridge-socket", &cfg.BridgeSocket, *bridgeSocket)
	set("table", &cfg.Bridge.Table, *table)
	set("proxy", &cfg.Proxy, *proxyAddr)
	set("recognizer", &cfg.Recognizer, *recognizer)
	set("model", &cfg.WhisperModel, *model)
	set("local-voice", &cfg.LocalVoice, *localVoice)
	if cli.CommandLine.Changed("strict-apps") {
		cfg.Bridge.StrictApps = *strictApps
	}
	if *quiet {
		cfg.SpeakResponses = false
	}

	if err := cfg.Validate(); err != nil {
		log.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := web.NewHub()

	capability, err := openBridge(cfg)
	if err != nil {
		log.Error("Failed to set up bridge", "err", err)
		os.Exit(1)
	}

	var ducker playback.Ducker
	if cfg.Duck {
		ducker = audio.NewDucker([]string{"jarvisd"}, 10)
	}
	spk := playback.NewSpeaker(ducker)

	chain, err := buildVoice(cfg, hub, spk)
	if err != nil {
		log.Error("Failed to set up voice", "err", err)
		os.Exit(1)
	}
	var speaker voice.Provider
	if chain.Name() != "" {
		speaker = chain
		log.Debug("Loaded voice", "chain", chain.Name())
	}

	var (
		rec speech.Recognizer = hub
		cue assistant.Cue
	)
	if cfg.Recognizer == "mic" {
		mic, closeMic, err := openMic(cfg)
		if err != nil {
			log.Error("Failed to set up microphone", "err", err)
			os.Exit(1)
		}
		defer closeMic()
		rec, cue = mic, spk
	}

	ctl := assistant.New(assistant.Config{
		Dispatcher:     dispatch.New(capability, hub),
		Voice:          speaker,
		Recognizer:     rec,
		Notifier:       notify.NewDesktop(),
		Cue:            cue,
		SpeakResponses: cfg.SpeakResponses,
	})

	go func() {
		log.Info("Control socket listening", "socket", cfg.ControlSocket)
		if err := ipc.Serve[assistant.ControlRequest, assistant.ControlResponse](ctx, cfg.ControlSocket, ctl.HandleControl); err != nil {
			log.Error("Failed control server", "err", err)
			stop()
		}
	}()

	go func() {
		if err := web.NewServer(hub, ctl).Run(ctx, cfg.Addr); err != nil && err != http.ErrServerClosed {
			log.Error("Failed web server", "err", err)
			stop()
		}
	}()

	log.Info("Boot up - successful")

	if err := ctl.Run(ctx); err != nil {
		log.Error("Assistant stopped", "err", err)
		os.Exit(1)
	}
	log.Info("Shut down")
}

func openBridge(cfg *config.Daemon) (dispatch.Capability, error) {
	switch cfg.BridgeMode {
	case config.BridgeEmbedded:
		host, err := bridge.Open(cfg.Bridge.Table, cfg.Bridge.StrictApps)
		if err != nil {
			return dispatch.Unavailable(), err
		}
		log.Info("Bridge embedded", "strict_apps", cfg.Bridge.StrictApps)
		return dispatch.Available(host), nil

	case config.BridgeSocket:
		if _, err := os.Stat(cfg.BridgeSocket); err != nil {
			log.Warn("Bridge socket not found, running with browser capabilities only until restart", "socket", cfg.BridgeSocket)
			return dispatch.Unavailable(), nil
		}
		log.Info("Bridge connected", "socket", cfg.BridgeSocket)
		return dispatch.Available(bridge.NewClient(cfg.BridgeSocket)), nil
	}

	log.Info("Bridge disabled")
	return dispatch.Unavailable(), nil
}

func buildVoice(cfg *config.Daemon, hub *web.Hub, spk *playback.Speaker) (*voice.Chain, error) {
	var providers []voice.Provider

	if cfg.ElevenLabs.APIKey != "" {
		var httpClient *http.Client
		if cfg.Proxy != "" {
			c, err := proxy.NewSocksClient(cfg.Proxy, 30*time.Second)
			if err != nil {
				return nil, err
			}
			httpClient = c
		}

		el, err := voice.NewElevenLabs(voice.ElevenLabsConfig{
			APIKey:     cfg.ElevenLabs.APIKey,
			VoiceID:    cfg.ElevenLabs.VoiceID,
			ModelID:    cfg.ElevenLabs.ModelID,
			HTTPClient: httpClient,
		}, spk)
		if err != nil {
			return nil, err
		}
		providers = append(providers, el)
	} else {
		log.Info("ELEVENLABS_API_KEY not set, using local voice only")
	}

	switch cfg.LocalVoice {
	case "espeak":
		providers = append(providers, tts.NewEspeak())
	case "browser":
		providers = append(providers, hub)
	}

	return voice.NewChain(providers...), nil
}

func openMic(cfg *config.Daemon) (*audio.MicRecognizer, func(), error) {
	rec := capture.NewRecorder()
	if err := rec.Init(); err != nil {
		return nil, nil, fmt.Errorf("init audio: %w", err)
	}
	log.Debug("Loaded recorder")

	whisper, err := stt.NewTranscriber(cfg.WhisperModel, stt.DefaultOptions())
	if err != nil {
		rec.Close()
		return nil, nil, fmt.Errorf("init whisper: %w", err)
	}
	log.Debug("Loaded whisper", "model", cfg.WhisperModel)

	return audio.NewMicRecognizer(rec, whisper), func() {
		whisper.Close()
		rec.Close()
	}, nil
}
