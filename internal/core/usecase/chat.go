package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
	"github.com/kirillkom/grounded-chat/internal/core/ports"
)

// ChatStage names a step of the per-request state machine.
type ChatStage string

const (
	StageReceiveQuery            ChatStage = "receive_query"
	StageResolveThread           ChatStage = "resolve_thread"
	StagePersistUserMessage      ChatStage = "persist_user_message"
	StageRetrieve                ChatStage = "retrieve"
	StageFuse                    ChatStage = "fuse"
	StageAssembleConversation    ChatStage = "assemble_conversation"
	StageInvokeModel             ChatStage = "invoke_model"
	StagePersistAssistantMessage ChatStage = "persist_assistant_message"
	StageUpdateThreadMetadata    ChatStage = "update_thread_metadata"
	StageRespond                 ChatStage = "respond"
)

const TitlePreviewRunes = 50

type corpusRetriever interface {
	Retrieve(ctx context.Context, query string, k int, filter domain.SearchFilter) domain.EvidenceBundle
}

type webEvidenceSource interface {
	Search(ctx context.Context, query string, maxResults int) domain.EvidenceBundle
}

// ChatObserver receives a summary of every successful chat request.
type ChatObserver interface {
	ObserveChat(obs domain.ChatObservation)
}

type ChatOptions struct {
	SystemPrompt  string
	TopK          int
	HistoryLimit  int
	WebMaxResults int
}

type ChatUseCase struct {
	store    ports.ConversationStore
	docs     ports.DocumentRepository
	corpus   corpusRetriever
	web      webEvidenceSource
	model    ports.ChatModel
	opts     ChatOptions
	observer ChatObserver
	now      func() time.Time
}

func NewChatUseCase(
	store ports.ConversationStore,
	docs ports.DocumentRepository,
	corpus corpusRetriever,
	web webEvidenceSource,
	model ports.ChatModel,
	opts ChatOptions,
) *ChatUseCase {
	if strings.TrimSpace(opts.SystemPrompt) == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.WebMaxResults <= 0 {
		opts.WebMaxResults = DefaultWebMaxResults
	}
	return &ChatUseCase{
		store:  store,
		docs:   docs,
		corpus: corpus,
		web:    web,
		model:  model,
		opts:   opts,
		now:    time.Now,
	}
}

func (uc *ChatUseCase) WithObserver(observer ChatObserver) *ChatUseCase {
	uc.observer = observer
	return uc
}

func (uc *ChatUseCase) Submit(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	start := uc.now()

	query := strings.TrimSpace(req.Message)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, string(StageReceiveQuery), errors.New("message is required"))
	}

	thread, err := uc.resolveThread(ctx, strings.TrimSpace(req.ThreadID), query)
	if err != nil {
		return nil, stageError(StageResolveThread, err)
	}

	userMsg := &domain.Message{
		ThreadID: thread.ID,
		Role:     domain.RoleUser,
		Content:  req.Message,
		Sources:  []string{},
	}
	if err := uc.store.AppendMessage(ctx, userMsg); err != nil {
		return nil, stageError(StagePersistUserMessage, err)
	}

	doc, web, err := uc.gatherEvidence(ctx, query, req)
	if err != nil {
		return nil, stageError(StageRetrieve, err)
	}

	branch := FusionBranchFor(doc, web)
	fused := FuseContext(doc, web, query)

	history, err := uc.store.ListRecentMessages(ctx, thread.ID, uc.opts.HistoryLimit)
	if err != nil {
		return nil, stageError(StageAssembleConversation, err)
	}
	conversation := AppendCurrentTurn(AssembleConversation(uc.opts.SystemPrompt, fused, history), *userMsg)

	sourceDocIDs, err := uc.resolveSourceDocuments(ctx, doc.Sources)
	if err != nil {
		return nil, stageError(StageAssembleConversation, err)
	}

	answer, err := uc.invokeModel(ctx, conversation)
	if err != nil {
		return nil, stageError(StageInvokeModel, err)
	}

	webUsed := web.Succeeded()
	persistedSources := append([]string{}, sourceDocIDs...)
	responseSources := append([]string{}, doc.Sources...)
	if webUsed {
		persistedSources = append(persistedSources, web.Sources...)
		responseSources = append(responseSources, web.Sources...)
	}

	assistantMsg := &domain.Message{
		ThreadID:      thread.ID,
		Role:          domain.RoleAssistant,
		Content:       answer,
		Sources:       persistedSources,
		WebSearchUsed: webUsed,
	}
	if err := uc.store.AppendMessage(ctx, assistantMsg); err != nil {
		return nil, stageError(StagePersistAssistantMessage, err)
	}

	if err := uc.refreshMessageCount(ctx, thread.ID); err != nil {
		return nil, stageError(StageUpdateThreadMetadata, err)
	}

	if uc.observer != nil {
		uc.observer.ObserveChat(domain.ChatObservation{
			Branch:          string(branch),
			CorpusStatus:    doc.Status,
			WebStatus:       web.Status,
			EvidenceCount:   len(doc.Items),
			PromptChars:     conversationChars(conversation),
			CompletionChars: utf8.RuneCountInString(answer),
			Duration:        uc.now().Sub(start),
		})
	}

	return &domain.ChatResponse{
		AssistantText: answer,
		ThreadID:      thread.ID,
		Sources:       responseSources,
		EvidenceCount: len(doc.Items),
		WebSearchUsed: webUsed,
		MessageID:     assistantMsg.ID,
	}, nil
}

func (uc *ChatUseCase) resolveThread(ctx context.Context, threadID, query string) (*domain.Thread, error) {
	if threadID != "" {
		return uc.store.GetThread(ctx, threadID)
	}
	return uc.store.CreateThread(ctx, previewTitle(query))
}

// gatherEvidence runs corpus retrieval and web search concurrently. Neither can
// fail the request; only cancellation of the request context does.
func (uc *ChatUseCase) gatherEvidence(
	ctx context.Context,
	query string,
	req domain.ChatRequest,
) (domain.EvidenceBundle, domain.EvidenceBundle, error) {
	doc := domain.EvidenceBundle{}
	web := domain.SkippedEvidence()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		doc = uc.corpus.Retrieve(gctx, query, uc.opts.TopK, domain.SearchFilter{DocumentID: strings.TrimSpace(req.DocumentID)})
		return nil
	})
	if req.EnableWebSearch {
		g.Go(func() error {
			web = uc.web.Search(gctx, query, uc.opts.WebMaxResults)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return doc, web, err
	}
	logDegraded("corpus", doc)
	logDegraded("web", web)
	return doc, web, nil
}

func (uc *ChatUseCase) resolveSourceDocuments(ctx context.Context, filenames []string) ([]string, error) {
	if len(filenames) == 0 {
		return []string{}, nil
	}
	docs, err := uc.docs.FindByFilenames(ctx, filenames)
	if err != nil {
		return nil, fmt.Errorf("resolve source documents: %w", err)
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func (uc *ChatUseCase) invokeModel(ctx context.Context, conversation []domain.ChatMessage) (string, error) {
	answer, err := uc.model.Complete(ctx, conversation)
	if err != nil {
		if domain.IsKind(err, domain.ErrModelInvocation) {
			return "", err
		}
		return "", domain.WrapError(domain.ErrModelInvocation, "complete conversation", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", domain.WrapError(domain.ErrModelInvocation, "complete conversation", errors.New("model returned empty text"))
	}
	return answer, nil
}

// refreshMessageCount stores an authoritative recount rather than incrementing.
func (uc *ChatUseCase) refreshMessageCount(ctx context.Context, threadID string) error {
	count, err := uc.store.CountMessages(ctx, threadID)
	if err != nil {
		return err
	}
	return uc.store.SetMessageCount(ctx, threadID, count)
}

func previewTitle(query string) string {
	if utf8.RuneCountInString(query) <= TitlePreviewRunes {
		return query
	}
	return string([]rune(query)[:TitlePreviewRunes]) + "..."
}

func stageError(stage ChatStage, err error) error {
	return fmt.Errorf("%s: %w", stage, err)
}

func logDegraded(source string, bundle domain.EvidenceBundle) {
	if bundle.Status != domain.EvidenceFailed {
		return
	}
	slog.Warn("evidence_degraded", "source", source, "error", bundle.Err)
}

func conversationChars(messages []domain.ChatMessage) int {
	total := 0
	for _, m := range messages {
		total += utf8.RuneCountInString(m.Content)
	}
	return total
}
