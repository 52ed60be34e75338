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
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultChunkSize is the number of misconfigurations analysed together.
	DefaultChunkSize = 1000
	// DefaultMaxTurns bounds the researcher and analyser exchange per chunk.
	DefaultMaxTurns = 4

	// maxParallelChunks caps concurrent chunk analyses.
	maxParallelChunks = 16

	finalMarker   = "FINAL ANSWER"
	turnSeparator = "------------------------------------------------"
	depthNotice   = "The analysis for this chunk reached the maximum allowed depth. Here's what we gathered:\n"
)

const (
	briefNode      = "brief"
	researcherNode = "researcher"
	analyserNode   = "analyser"
	reportNode     = "report"
)

// ErrAnalysisFailed is returned when no inventory chunk could be analysed.
var ErrAnalysisFailed = errors.New("misconfiguration analysis failed for every chunk")

const teamSystemPrompt = `You are a helpful AI assistant, collaborating with another assistant.
If you are unable to fully answer, the other assistant will help where you left off. Make what progress you can.
If you or the other assistant have the final answer or deliverable, prefix your response with FINAL ANSWER so the team knows to stop.
Only provide information and assistance related to cloud security. If a query is not related to cloud security, respond with:
` + OffTopicAnswer + `
{role}

Misconfigurations in the user's AWS cloud and the reference rules to guide your analysis, as JSON:
{context}`

const researcherRole = `Your main job is to analyze the misconfigurations from the provided list and reference rules.
Determine the severity and suggest remediation steps based on the provided rules.
If you have sufficient information to provide a meaningful response, include 'FINAL ANSWER:' at the beginning of your message.`

const analyserRole = `Your main job is to figure out the most important suggestions that need to be applied from the Researcher's plan and display them to the user.
Use the list of misconfigurations in the user's AWS cloud and the reference rules to make your decision.
If you have sufficient information to provide a meaningful response, include 'FINAL ANSWER:' at the beginning of your message.`

const summaryPrompt = `You are a helpful assistant whose goal is to summarize the most important suggestions that need to be applied from the input, which is a conversation between two other assistants. Each assistant outputs a block of text with its own suggestions delimited by the string '` + turnSeparator + `'. Remove or rephrase all references the assistants make to each other, so the output is a coherent summary of the most important suggestions with no references to the assistants themselves.

For every suggestion in the final output, also include the relevant CLI commands and action steps needed to implement it. Keep to the suggestions most relevant to the user's AWS cloud configuration.

Some chunks of analysis may have reached a maximum depth. If you see indications of this, summarize the available information without speculating about the incomplete analysis.

Input: {transcript}
Summary:`

// chunkBrief is the input of one chunk analysis.
type chunkBrief struct {
	Query   string
	Context string
}

// analysisState is the per-run graph state shared by the two agents.
type analysisState struct {
	context string
	history []*schema.Message
	turns   []string
	limited bool
}

// pipeline answers queries against a misconfiguration inventory: every chunk
// runs through the researcher and analyser loop and the transcripts are
// summarized into one answer.
type pipeline struct {
	analysis   compose.Runnable[*chunkBrief, string]
	summarizer invoker
	briefs     []string
}

func newPipeline(ctx context.Context, chatModel model.BaseChatModel, briefs []string, maxTurns int) (*pipeline, error) {
	analysis, err := compileAnalysis(ctx, chatModel, maxTurns)
	if err != nil {
		return nil, fmt.Errorf("failed to compile analysis graph: %w", err)
	}

	summarizer, err := compileChain(ctx, chatModel, prompt.FromMessages(
		schema.FString,
		schema.UserMessage(summaryPrompt),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to compile summary chain: %w", err)
	}

	return &pipeline{analysis: analysis, summarizer: summarizer, briefs: briefs}, nil
}

// compileAnalysis builds the per-chunk graph. The researcher and analyser take
// turns until one of them answers with the final marker or maxTurns replies
// have been produced; the report node then renders the transcript.
func compileAnalysis(ctx context.Context, chatModel model.BaseChatModel, maxTurns int) (compose.Runnable[*chunkBrief, string], error) {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	g := compose.NewGraph[*chunkBrief, string](compose.WithGenLocalState(func(context.Context) *analysisState {
		return &analysisState{}
	}))

	if err := g.AddLambdaNode(briefNode, compose.InvokableLambda(startAnalysis)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(researcherNode, agentLambda(chatModel, "Researcher", researcherRole)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(analyserNode, agentLambda(chatModel, "Analyser", analyserRole)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(reportNode, compose.InvokableLambda(reportTranscript)); err != nil {
		return nil, err
	}

	if err := g.AddEdge(compose.START, briefNode); err != nil {
		return nil, err
	}
	if err := g.AddEdge(briefNode, researcherNode); err != nil {
		return nil, err
	}
	if err := g.AddBranch(researcherNode, nextTurn(analyserNode, maxTurns)); err != nil {
		return nil, err
	}
	if err := g.AddBranch(analyserNode, nextTurn(researcherNode, maxTurns)); err != nil {
		return nil, err
	}
	if err := g.AddEdge(reportNode, compose.END); err != nil {
		return nil, err
	}

	// brief, every turn, report and the end node each take one step.
	return g.Compile(ctx, compose.WithMaxRunSteps(maxTurns+4))
}

func startAnalysis(ctx context.Context, in *chunkBrief) (*schema.Message, error) {
	query := schema.UserMessage(in.Query)
	err := compose.ProcessState(ctx, func(_ context.Context, st *analysisState) error {
		st.context = in.Context
		st.history = append(st.history, query)
		return nil
	})
	return query, err
}

func agentLambda(chatModel model.BaseChatModel, name, role string) *compose.Lambda {
	tmpl := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(teamSystemPrompt),
		schema.MessagesPlaceholder("history", false),
	)

	return compose.InvokableLambda(func(ctx context.Context, _ *schema.Message) (*schema.Message, error) {
		vars := map[string]any{"role": role}
		if err := compose.ProcessState(ctx, func(_ context.Context, st *analysisState) error {
			vars["context"] = st.context
			vars["history"] = append([]*schema.Message(nil), st.history...)
			return nil
		}); err != nil {
			return nil, err
		}

		msgs, err := tmpl.Format(ctx, vars)
		if err != nil {
			return nil, fmt.Errorf("failed to format %s prompt: %w", name, err)
		}

		reply, err := chatModel.Generate(ctx, msgs)
		if err != nil {
			return nil, fmt.Errorf("%s turn failed: %w", name, err)
		}

		turn := &schema.Message{Role: schema.Assistant, Name: name}
		if reply != nil {
			turn.Content = reply.Content
		}

		err = compose.ProcessState(ctx, func(_ context.Context, st *analysisState) error {
			st.history = append(st.history, turn)
			st.turns = append(st.turns, turn.Content)
			return nil
		})
		return turn, err
	})
}

// nextTurn hands the exchange to next unless the reply is final or the turn
// budget is spent.
func nextTurn(next string, maxTurns int) *compose.GraphBranch {
	return compose.NewGraphBranch(func(ctx context.Context, reply *schema.Message) (string, error) {
		if strings.Contains(reply.Content, finalMarker) {
			return reportNode, nil
		}

		route := next
		err := compose.ProcessState(ctx, func(_ context.Context, st *analysisState) error {
			if len(st.turns) >= maxTurns {
				st.limited = true
				route = reportNode
			}
			return nil
		})
		return route, err
	}, map[string]bool{next: true, reportNode: true})
}

func reportTranscript(ctx context.Context, _ *schema.Message) (string, error) {
	var report strings.Builder
	err := compose.ProcessState(ctx, func(_ context.Context, st *analysisState) error {
		if st.limited {
			report.WriteString(depthNotice)
		}
		for _, turn := range st.turns {
			report.WriteString(turn)
			report.WriteString("\n" + turnSeparator + "\n")
		}
		return nil
	})
	return report.String(), err
}

// run analyses every chunk concurrently and summarizes the transcripts.
// Failed chunks are logged and skipped.
func (p *pipeline) run(ctx context.Context, query string) (string, error) {
	transcripts := make([]string, len(p.briefs))
	failed := make([]error, len(p.briefs))

	var eg errgroup.Group
	eg.SetLimit(maxParallelChunks)
	for i, brief := range p.briefs {
		eg.Go(func() error {
			transcripts[i], failed[i] = p.analysis.Invoke(ctx, &chunkBrief{Query: query, Context: brief})
			return nil
		})
	}
	_ = eg.Wait()

	var gathered []string
	for i, err := range failed {
		if err != nil {
			log.Warn().Err(err).Str("component", "assistant").Int("chunk", i).Msg("chunk analysis failed")
			continue
		}
		gathered = append(gathered, transcripts[i])
	}
	if len(gathered) == 0 {
		return "", errors.Join(append([]error{ErrAnalysisFailed}, failed...)...)
	}

	log.Debug().Str("component", "assistant").
		Int("chunks", len(p.briefs)).
		Int("analysed", len(gathered)).
		Msg("summarizing chunk analyses")

	msg, err := p.summarizer.Invoke(ctx, map[string]any{"transcript": strings.Join(gathered, "\n")})
	if err != nil {
		return "", fmt.Errorf("failed to run summary chain: %w", err)
	}
	return cleanAnswer(msg), nil
}
