package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/osaetin-tails/rag-demo/internal/console"
	"github.com/osaetin-tails/rag-demo/internal/domain"
	"github.com/osaetin-tails/rag-demo/internal/prompt"
)

const exitCommand = "exit"

type State int

const (
	AwaitingInput State = iota
	Processing
	Terminated
)

func (s State) String() string {
	switch s {
	case AwaitingInput:
		return "awaiting_input"
	case Processing:
		return "processing"
	case Terminated:
		return "terminated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Retriever finds the chunks most relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) (domain.RetrievalResult, error)
}

// Session is the question/answer loop. Turns run one at a time; a failed
// turn is reported and the session keeps waiting for input.
type Session struct {
	retriever Retriever
	generator domain.Generator
	printer   *console.Printer
	topK      int
	// logger receives per-turn retrieval diagnostics; nil disables them.
	logger *log.Logger
	state  State
}

func New(retriever Retriever, generator domain.Generator, printer *console.Printer, topK int, logger *log.Logger) *Session {
	return &Session{
		retriever: retriever,
		generator: generator,
		printer:   printer,
		topK:      topK,
		logger:    logger,
		state:     AwaitingInput,
	}
}

func (s *Session) State() State { return s.state }

// Run prompts for and handles lines from in until the exit command or end
// of input. Lines have no length limit. It returns only read errors.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	r := bufio.NewReader(in)
	for s.state != Terminated {
		s.printer.Prompt()
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			s.state = Terminated
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
		s.Handle(ctx, line)
	}
	return nil
}

// Handle processes one input line.
func (s *Session) Handle(ctx context.Context, line string) {
	if s.state == Terminated {
		return
	}
	query := strings.TrimSpace(line)
	switch query {
	case exitCommand:
		s.state = Terminated
		return
	case "":
		return
	}

	s.state = Processing
	answer, err := s.answer(ctx, query)
	if err != nil {
		s.printer.Error(err)
	} else {
		s.printer.Answer(answer)
	}
	s.state = AwaitingInput
}

func (s *Session) answer(ctx context.Context, query string) (string, error) {
	result, err := s.retriever.Retrieve(ctx, query, s.topK)
	if err != nil {
		return "", err
	}
	if s.logger != nil {
		s.logger.Printf("retrieved %d chunks for %q", len(result), query)
		for i, r := range result {
			s.logger.Printf("#%d score=%.4f chunk=%s page=%d: %s", i+1, r.Score, r.Chunk.ID, r.Chunk.Page+1, s.printer.Excerpt(r.Chunk.Text, query))
		}
	}
	return s.generator.Generate(ctx, prompt.Build(query, result))
}
