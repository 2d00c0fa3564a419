// Package stdio implements the line-oriented request/response protocol the
// parent process speaks over this process's standard streams. Commands are
// handled strictly sequentially: one envelope is fully processed, including
// its inference call, before the next line is read.
package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"inferd/internal/sentinel"
	"inferd/pkg/types"
)

// Commands accepted on the stream.
const (
	cmdHealth   = "health"
	cmdInfo     = "info"
	cmdPredict  = "predict"
	cmdShutdown = "shutdown"
)

// unknownID correlates responses to envelopes whose request_id could not be
// recovered.
const unknownID = "unknown"

// Input lines above this size end the stream; batches on this transport are
// bounded by payload size only.
const maxLineBytes = 64 << 20

// Service is what the transport needs from the prediction layer.
type Service interface {
	Describe() types.ModelDescriptor
	Execute(ctx context.Context, input json.RawMessage) (types.PredictResponse, error)
}

// envelope is one inbound command line.
type envelope struct {
	Cmd       string          `json:"cmd"`
	RequestID string          `json:"request_id"`
	Input     json.RawMessage `json:"input"`
}

// response is the single outbound frame shape for every command.
type response struct {
	RequestID     string                 `json:"request_id"`
	Status        string                 `json:"status"`
	Type          string                 `json:"type,omitempty"`
	Message       string                 `json:"message,omitempty"`
	ModelInfo     *types.ModelDescriptor `json:"model_info,omitempty"`
	Prediction    []any                  `json:"prediction,omitempty"`
	Probabilities [][]float64            `json:"probabilities,omitempty"`
	Classes       []any                  `json:"classes,omitempty"`
}

// Server reads envelopes from one stream and writes framed responses to the
// shared control channel.
type Server struct {
	svc  Service
	in   io.Reader
	emit *sentinel.Emitter
	log  zerolog.Logger
}

// New constructs a Server. The emitter is shared with whatever else writes
// frames to the parent.
func New(svc Service, in io.Reader, emit *sentinel.Emitter, log zerolog.Logger) *Server {
	return &Server{svc: svc, in: in, emit: emit, log: log}
}

// AnnounceReady emits the one framed startup response the parent waits for
// before sending commands.
func (s *Server) AnnounceReady() {
	desc := s.svc.Describe()
	s.respond(response{RequestID: "startup", Status: "ok", Type: "ready", ModelInfo: &desc})
}

// Run processes commands until a shutdown command or end of stream. End of
// stream closes the loop without a response; the parent observes process exit.
func (s *Server) Run(ctx context.Context) error {
	sc := bufio.NewScanner(s.in)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !s.handle(ctx, line) {
			return nil
		}
	}
	return sc.Err()
}

// handle processes one non-blank line and reports whether the loop continues.
func (s *Server) handle(ctx context.Context, line string) bool {
	var env envelope
	if err := json.Unmarshal([]byte(line), &env); err != nil {
		s.respondError(unknownID, "invalid JSON: "+err.Error())
		return true
	}
	id := env.RequestID
	if id == "" {
		id = unknownID
	}
	switch env.Cmd {
	case cmdHealth:
		desc := s.svc.Describe()
		s.respond(response{RequestID: id, Status: "ok", Type: "ready", ModelInfo: &desc})
	case cmdInfo:
		desc := s.svc.Describe()
		s.respond(response{RequestID: id, Status: "ok", ModelInfo: &desc})
	case cmdPredict:
		input := env.Input
		if len(input) == 0 {
			input = json.RawMessage(`{}`)
		}
		resp, err := s.svc.Execute(ctx, input)
		if err != nil {
			s.respondError(id, err.Error())
			return true
		}
		s.respond(response{
			RequestID:     id,
			Status:        "ok",
			Prediction:    resp.Prediction,
			Probabilities: resp.Probabilities,
			Classes:       resp.Classes,
		})
	case cmdShutdown:
		s.respond(response{RequestID: id, Status: "ok", Message: "shutting down"})
		return false
	default:
		s.respondError(id, "unknown command: "+env.Cmd)
	}
	return true
}

func (s *Server) respond(r response) {
	if err := s.emit.Response(r); err != nil {
		s.log.Error().Err(err).Msg("failed to write response frame")
	}
}

func (s *Server) respondError(id, message string) {
	s.respond(response{RequestID: id, Status: "error", Message: message})
}
