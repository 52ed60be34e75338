package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
)

// OffTopicAnswer is returned for questions unrelated to cloud security.
const OffTopicAnswer = "I apologize, but I am a specialized chatbot focused solely on cloud security topics. " +
	"I cannot assist with queries outside this domain. Please try again with a cloud security-related question."

// ErrEmptyAnswer is returned when the model produces no content.
var ErrEmptyAnswer = errors.New("assistant produced an empty answer")

const classifierPrompt = "Determine if the following query is related to cloud security. " +
	"Respond with only 'Yes' or 'No'.\n\nQuery: {query}\nAnswer:"

const answerSystemPrompt = `You are a helpful assistant whose goal is to help implement cloud security policies in customers' AWS cloud configurations.
Only provide information and assistance related to cloud security.
For every suggestion you make, include the relevant CLI commands and the action steps needed to apply it.
Present multi-step instructions as a numbered list.

Use the following reference rules to guide your analysis and recommendations:
{rules}`

// invoker is the part of a compiled eino chain the service relies on.
type invoker interface {
	Invoke(ctx context.Context, input map[string]any, opts ...compose.Option) (*schema.Message, error)
}

// Options configure what the assistant grounds its answers on.
type Options struct {
	Rules []Rule
	// Inventory switches answers to the per-chunk misconfiguration analysis.
	Inventory []Misconfiguration
	ChunkSize int
	MaxTurns  int
}

// Service answers visitor queries with an LLM, refusing off-topic questions.
type Service struct {
	classifier invoker
	answerer   invoker
	analysis   *pipeline
	rules      string
}

// NewService compiles the topic classifier and answer chains around chatModel,
// plus the analysis pipeline when an inventory is given.
func NewService(ctx context.Context, chatModel model.BaseChatModel, opts Options) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	classifier, err := compileChain(ctx, chatModel, prompt.FromMessages(
		schema.FString,
		schema.UserMessage(classifierPrompt),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to compile topic classifier chain: %w", err)
	}

	answerer, err := compileChain(ctx, chatModel, prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(answerSystemPrompt),
		schema.UserMessage("{query}"),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to compile answer chain: %w", err)
	}

	svc := newService(classifier, answerer, opts.Rules)
	if len(opts.Inventory) == 0 {
		return svc, nil
	}

	briefs, err := chunkBriefs(opts.Inventory, opts.Rules, opts.ChunkSize)
	if err != nil {
		return nil, err
	}
	svc.analysis, err = newPipeline(ctx, chatModel, briefs, opts.MaxTurns)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func newService(classifier, answerer invoker, rules []Rule) *Service {
	return &Service{
		classifier: classifier,
		answerer:   answerer,
		rules:      describeRules(rules),
	}
}

func compileChain(ctx context.Context, chatModel model.BaseChatModel, tmpl prompt.ChatTemplate) (compose.Runnable[map[string]any, *schema.Message], error) {
	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(tmpl)
	chain.AppendChatModel(chatModel)
	return chain.Compile(ctx)
}

// Respond answers a single query without any conversation history.
func (s *Service) Respond(ctx context.Context, query string) (string, error) {
	related, err := s.isCloudSecurity(ctx, query)
	if err != nil {
		return "", err
	}
	if !related {
		log.Info().Str("component", "assistant").Msg("refusing off-topic query")
		return OffTopicAnswer, nil
	}

	var answer string
	if s.analysis != nil {
		answer, err = s.analysis.run(ctx, query)
		if err != nil {
			return "", err
		}
	} else {
		msg, err := s.answerer.Invoke(ctx, map[string]any{
			"rules": s.rules,
			"query": query,
		})
		if err != nil {
			return "", fmt.Errorf("failed to run answer chain: %w", err)
		}
		answer = cleanAnswer(msg)
	}

	if answer == "" {
		return "", ErrEmptyAnswer
	}

	log.Debug().Str("component", "assistant").Int("length", len(answer)).Msg("generated answer")
	return answer, nil
}

func (s *Service) isCloudSecurity(ctx context.Context, query string) (bool, error) {
	msg, err := s.classifier.Invoke(ctx, map[string]any{"query": query})
	if err != nil {
		return false, fmt.Errorf("failed to run topic classifier: %w", err)
	}
	if msg == nil {
		return false, nil
	}

	verdict := strings.ToLower(strings.TrimSpace(msg.Content))
	verdict = strings.TrimRight(verdict, ".!")
	return verdict == "yes", nil
}

// cleanAnswer drops the hand-off marker models sometimes prefix answers with.
func cleanAnswer(msg *schema.Message) string {
	if msg == nil {
		return ""
	}
	answer := strings.TrimSpace(msg.Content)
	for _, marker := range []string{"FINAL ANSWER:", "FINAL ANSWER"} {
		if strings.HasPrefix(answer, marker) {
			answer = strings.TrimSpace(strings.TrimPrefix(answer, marker))
			break
		}
	}
	return answer
}

// Static answers every query with a fixed text. It keeps the endpoints working
// when no model is configured.
type Static struct {
	Answer string
}

// Respond returns the fixed answer.
func (s Static) Respond(context.Context, string) (string, error) {
	return s.Answer, nil
}
