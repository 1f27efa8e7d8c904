package main

import (
	"strings"

	"github.com/warroom/extension/internal/config"
	"github.com/warroom/extension/internal/session"
	"github.com/warroom/extension/internal/stream"
	"github.com/warroom/extension/pkg/streaming"
)

func createStreamBackend(sc config.StreamConfig) *stream.Backend {
	wsURL := httpToWS(sc.URL)
	Logger.Info("Frame stream backend initialized", "url", wsURL, "frameEveryN", sc.FrameEveryN)
	return stream.New(stream.Config{
		URL:         wsURL,
		Secret:      sc.Secret,
		FrameEveryN: sc.FrameEveryN,
	}, Logger)
}

func streamPayload(origin session.Origin, width, height float64) streaming.StartSessionPayload {
	return streaming.StartSessionPayload{
		SessionID: sessionCtx.ID(),
		StartTime: sessionCtx.Started(),
		Origin:    origin.LonLat,
		Width:     width,
		Height:    height,
	}
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
