package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/maximotodev/bitcoin-chatbot/internal/llm"
)

// Turn is one historical message supplied by the caller. The caller is the
// system of record for history; nothing is stored between requests.
type Turn struct {
	Role Role   `json:"type"`
	Text string `json:"text"`
}

// Role is the author of a historical turn.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Generator is the language-model collaborator.
type Generator interface {
	GenerateContent(ctx context.Context, turns []llm.Turn) (llm.Reply, error)
}

// DataSource provides the rendered market snapshot and a degradation note.
type DataSource interface {
	Data(ctx context.Context) (text, note string)
}

// Bot assembles the outbound prompt and interprets the model's reply.
type Bot struct {
	gen   Generator
	data  DataSource
	rules []LinkRule
	log   *zap.Logger
}

func NewBot(gen Generator, data DataSource, rules []LinkRule, log *zap.Logger) *Bot {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{gen: gen, data: data, rules: rules, log: log}
}

// Answer produces a best-effort textual answer. Collaborator failures never
// escape this boundary; every path returns a user-facing string.
func (b *Bot) Answer(ctx context.Context, question string, history []Turn) string {
	// Guard, not an error: empty input short-circuits before any collaborator
	// is contacted.
	if strings.TrimSpace(question) == "" {
		return emptyQuestionReply
	}

	turns := make([]llm.Turn, 0, len(history)+3)
	turns = append(turns,
		llm.Turn{Role: llm.RoleUser, Text: Preamble},
		llm.Turn{Role: llm.RoleModel, Text: acknowledgement},
	)
	for _, h := range history {
		role := llm.RoleUser
		if h.Role == RoleBot {
			role = llm.RoleModel
		}
		turns = append(turns, llm.Turn{Role: role, Text: h.Text})
	}
	turns = append(turns, llm.Turn{
		Role: llm.RoleUser,
		Text: fmt.Sprintf("%s\n\nUser Question: %s\n\nAnswer:", b.dataBlock(ctx), question),
	})

	reply, err := b.gen.GenerateContent(ctx, turns)
	if err != nil {
		b.log.Error("generate content failed", zap.Error(err))
		return apologyReply
	}

	answer := strings.TrimSpace(reply.Text)
	if answer == "" {
		block := reply.BlockReason
		if block == "" {
			block = "Unknown"
		}
		finish := reply.FinishReason
		if finish == "" {
			finish = "N/A"
		}
		b.log.Warn("model reply blocked or incomplete",
			zap.String("block_reason", block), zap.String("finish_reason", finish))
		return fmt.Sprintf("Response blocked or incomplete. Reason: %s. Finish: %s", block, finish)
	}
	return AnnotateLinks(answer, b.rules)
}

// dataBlock renders the quote section of the final turn. A stale note keeps
// the numeric fields; a genuine fetch error replaces them with an explicit
// marker so the model reports the outage instead of hallucinating figures.
func (b *Bot) dataBlock(ctx context.Context) string {
	text, note := b.data.Data(ctx)
	switch {
	case note == "":
		return text
	case strings.HasPrefix(note, "stale:"):
		return text + "\n(Note: this data could not be refreshed and may be stale.)"
	default:
		return fmt.Sprintf("[Real-time Bitcoin data fetch error: %s]", note)
	}
}
