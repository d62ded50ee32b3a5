package main

import (
	"context"
	"fmt"
	"os"

	"jarvis/internal/assistant"
	"jarvis/internal/bridge"
	"jarvis/internal/command"
	"jarvis/internal/ctl"
	"jarvis/internal/ipc"
	"jarvis/pkg/audioconv"
	"jarvis/pkg/stt"
)

type localBackend struct{}

func (localBackend) Control(ctx context.Context, socket string, req assistant.ControlRequest) (assistant.ControlResponse, error) {
	return ipc.Call[assistant.ControlRequest, assistant.ControlResponse](ctx, socket, req)
}

func (localBackend) Bridge(ctx context.Context, socket string, action command.Action, args map[string]string) (string, error) {
	return bridge.NewClient(socket).Do(ctx, action, args)
}

func (localBackend) Transcribe(ctx context.Context, path, model string) (string, error) {
	pcm, err := audioconv.DecodeFile(path)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}

	tr, err := stt.NewTranscriber(model, stt.DefaultOptions())
	if err != nil {
		return "", err
	}
	defer tr.Close()

	return tr.Transcribe(ctx, pcm)
}

func main() {
	root := ctl.NewRootCmd(localBackend{})
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "jarvis-ctl:", err)
		os.Exit(1)
	}
}
