package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/xhad/advisor/internal/models"
	"go.uber.org/zap"
)

// Stream is a lazy, finite, non-restartable sequence of completion chunks.
// Chunks are handed over one at a time, so nothing is generated ahead of the
// consumer and nothing is delivered after Abort.
type Stream struct {
	chunks     chan string
	done       chan struct{}
	cancel     context.CancelFunc
	supervisor string

	mu       sync.Mutex
	text     strings.Builder
	n        int
	aborted  bool
	finished bool // consumer saw the end of the chunks
	ended    bool // generation returned
	err      error
}

// Stream starts generating the answer to prompt in the background.
// The caller must drain it with Next, or call Abort or Result.
func (o *Orchestrator) Stream(ctx context.Context, prompt models.Prompt) *Stream {
	sctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		chunks:     make(chan string),
		done:       make(chan struct{}),
		cancel:     cancel,
		supervisor: prompt.Supervisor,
	}

	go func() {
		outcome := s.run(sctx, o, prompt)
		o.metrics.ChatTurn("stream", outcome)
		if outcome == "failed" {
			o.log.Error("streamed completion failed", zap.String("prompt_id", prompt.ID), zap.Error(s.err))
		} else {
			o.log.Debug("streamed completion finished", zap.String("prompt_id", prompt.ID), zap.String("outcome", outcome))
		}
	}()

	return s
}

func (s *Stream) run(ctx context.Context, o *Orchestrator, prompt models.Prompt) string {
	defer close(s.done)
	defer close(s.chunks)
	defer s.cancel()

	send := func(ctx context.Context, chunk string) error {
		select {
		case s.chunks <- chunk:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	sent := 0
	text, err := o.model.Generate(ctx, prompt.All(), func(ctx context.Context, chunk string) error {
		if chunk == "" {
			return nil
		}
		if err := send(ctx, chunk); err != nil {
			return err
		}
		sent++
		return nil
	})
	// A model that ignores the chunk callback still yields its answer once.
	if err == nil && sent == 0 && text != "" {
		err = send(ctx, text)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = true
	switch {
	case ctx.Err() != nil:
		s.aborted = true
		return "aborted"
	case err != nil:
		s.err = err
		return "failed"
	case sent == 0 && text == "":
		s.err = fmt.Errorf("empty response from model")
		return "failed"
	default:
		return "completed"
	}
}

// Next blocks until the next chunk is available. It returns false once the
// stream is exhausted, failed or aborted. Cancelling ctx aborts the stream.
func (s *Stream) Next(ctx context.Context) (string, bool) {
	s.mu.Lock()
	over := s.aborted || s.finished
	s.mu.Unlock()
	if over {
		return "", false
	}
	if ctx.Err() != nil {
		s.Abort()
		return "", false
	}

	select {
	case chunk, ok := <-s.chunks:
		s.mu.Lock()
		defer s.mu.Unlock()
		if !ok {
			s.finished = true
			return "", false
		}
		if s.aborted {
			return "", false
		}
		s.text.WriteString(chunk)
		s.n++
		return chunk, true
	case <-ctx.Done():
		s.Abort()
		return "", false
	}
}

// Abort stops generation and releases the model call. Text already handed out
// is kept. Once generation has returned, Abort has no effect on the outcome.
func (s *Stream) Abort() {
	s.mu.Lock()
	if !s.finished && !s.ended {
		s.aborted = true
	}
	s.mu.Unlock()

	s.cancel()
	<-s.done
}

// Result drains any chunks not yet consumed and reports the outcome. An
// aborted stream is not an error; a failed one carries no partial text.
func (s *Stream) Result() (models.Completion, error) {
	for {
		if _, ok := s.Next(context.Background()); !ok {
			break
		}
	}
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.aborted && s.err != nil {
		return models.Completion{Supervisor: s.supervisor}, fmt.Errorf("%w: %w", models.ErrCompletionFailed, s.err)
	}
	return models.Completion{
		Text:       s.text.String(),
		Chunks:     s.n,
		Aborted:    s.aborted,
		Supervisor: s.supervisor,
	}, nil
}

// Supervisor is the supervisor whose documents grounded this answer, if any.
func (s *Stream) Supervisor() string {
	return s.supervisor
}
