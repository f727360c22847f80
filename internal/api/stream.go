package api

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"math"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/prasasta/revoice/domain/repositories"
	"github.com/prasasta/revoice/usecase"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: restrict origins in production
	},
}

// streamMessage is one websocket frame of a streaming synthesis session.
type streamMessage struct {
	Type       string `json:"type"` // "chunk", "done", or "error"
	AudioData  string `json:"audio_data,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Message    string `json:"message,omitempty"`
}

// streamSynthesis renders text over a live websocket connection: the client
// sends one synthesis request, chunks of base64 16-bit PCM stream back, then
// a final "done" frame. Browsers cannot set headers on websocket upgrades,
// so the access token travels as a query parameter.
func (s *Server) streamSynthesis(c echo.Context) error {
	if s.auth != nil {
		claims, err := s.auth.ValidateToken(c.QueryParam("token"))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid token query parameter required"})
		}
		s.logger.Debug("stream session authorized",
			zap.String("userID", claims.UserID),
			zap.String("role", claims.Role))
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	var req SynthesisRequestBody
	if err := conn.ReadJSON(&req); err != nil {
		conn.WriteJSON(streamMessage{Type: "error", Message: "invalid request payload"})
		return nil
	}
	if req.Text == "" {
		conn.WriteJSON(streamMessage{Type: "error", Message: "text is required"})
		return nil
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	chunks := make(chan repositories.AudioClip, 4)
	errs := make(chan error, 1)
	go func() {
		errs <- s.synthesis.Stream(ctx, usecase.SynthesisRequest{
			Text:           req.Text,
			VoiceProfileID: req.VoiceProfileID,
			Params:         req.Params(),
			Preview:        true,
		}, chunks)
		close(chunks)
	}()

	for chunk := range chunks {
		msg := streamMessage{
			Type:       "chunk",
			AudioData:  base64.StdEncoding.EncodeToString(pcmBytes(chunk.Samples)),
			SampleRate: chunk.SampleRate,
		}
		if err := conn.WriteJSON(msg); err != nil {
			cancel()
			for range chunks {
			}
			<-errs
			return nil
		}
	}

	if err := <-errs; err != nil {
		s.logger.Warn("streaming synthesis failed", zap.Error(err))
		conn.WriteJSON(streamMessage{Type: "error", Message: err.Error()})
		return nil
	}
	conn.WriteJSON(streamMessage{Type: "done"})
	return nil
}

func pcmBytes(samples []float64) []byte {
	buf := make([]byte, 2*len(samples))
	for i, v := range samples {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(int16(math.Round(v*32767))))
	}
	return buf
}
