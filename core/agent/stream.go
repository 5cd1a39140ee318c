package agent

import (
	"errors"
	"iter"

	"github.com/leofalp/sagent/providers/ai"
)

// Stream is a finite, non-restartable sequence of completion fragments.
// Consume it once, through Text, Events or Collect.
type Stream struct {
	model string
	inner *ai.ChatStream
}

func newStream(model string, inner *ai.ChatStream) *Stream {
	return &Stream{model: model, inner: inner}
}

// Events yields the raw provider events. Errors are wrapped in a
// *CompletionError.
func (s *Stream) Events() iter.Seq2[ai.StreamEvent, error] {
	return func(yield func(ai.StreamEvent, error) bool) {
		for event, err := range s.inner.Iter() {
			if err != nil {
				yield(event, s.wrap(err))
				return
			}
			if !yield(event, nil) {
				return
			}
		}
	}
}

// Text yields the content fragments in order. A failure is yielded once as
// the final element.
func (s *Stream) Text() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for event, err := range s.Events() {
			if err != nil {
				yield("", err)
				return
			}
			if event.Type != ai.StreamEventContent || event.Content == "" {
				continue
			}
			if !yield(event.Content, nil) {
				return
			}
		}
	}
}

// Collect drains the stream and returns the concatenated text, which equals
// what Prompt returns for the same model output.
func (s *Stream) Collect() (string, error) {
	response, err := s.Response()
	if err != nil {
		return "", err
	}
	return response.Content, nil
}

// Response drains the stream into a ChatResponse carrying usage and the
// finish reason alongside the text.
func (s *Stream) Response() (*ai.ChatResponse, error) {
	response, err := s.inner.Collect()
	if err != nil {
		return response, s.wrap(err)
	}
	if response.Content == "" {
		return response, s.wrap(ErrEmptyResponse)
	}
	response.Model = s.model
	return response, nil
}

func (s *Stream) wrap(err error) error {
	var completionErr *CompletionError
	if errors.As(err, &completionErr) {
		return err
	}
	return &CompletionError{Model: s.model, Err: err}
}
