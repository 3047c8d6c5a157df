package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"mnp-assistant-be/internal/dto"
	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/internal/pkg/logger"
	"mnp-assistant-be/internal/repository/memory"
	"mnp-assistant-be/internal/repository/specification"
	"mnp-assistant-be/internal/repository/unitofwork"
	"mnp-assistant-be/pkg/apperror"
	"mnp-assistant-be/pkg/conversation"
	"mnp-assistant-be/pkg/escalation"

	"github.com/google/uuid"
)

const (
	chatLogModule      = "ChatService"
	defaultTitle       = "Unnamed session"
	greetingText       = "こんにちは。MNP（番号そのまま乗り換え）のお手続きをご案内します。ご質問を入力するか、手続きを始めてください。"
	titleMaxRunes      = 50
	historyReloadLimit = 20
)

type IChatService interface {
	CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error)
	GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
	SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error)
	DeleteSession(ctx context.Context, userId uuid.UUID, request *dto.DeleteSessionRequest) error
	VerifySession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error
}

// TurnHandler is the conversation entry point the chat service drives.
type TurnHandler interface {
	HandleTurn(ctx context.Context, turn conversation.Turn) (*conversation.Reply, error)
}

type chatService struct {
	uowFactory   unitofwork.RepositoryFactory
	orchestrator TurnHandler
	sessionRepo  *memory.SessionRepository
	logger       logger.ILogger
	now          func() time.Time
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	orchestrator TurnHandler,
	sessionRepo *memory.SessionRepository,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory:   uowFactory,
		orchestrator: orchestrator,
		sessionRepo:  sessionRepo,
		logger:       log,
		now:          time.Now,
	}
}

// CreateSession stores a session with its greeting message.
func (cs *chatService) CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	now := cs.now()

	chatSession := entity.ChatSession{
		Id:            uuid.New(),
		UserId:        userId,
		Title:         sessionTitle(request.Carrier, request.TargetCarrier),
		Carrier:       strings.TrimSpace(request.Carrier),
		TargetCarrier: strings.TrimSpace(request.TargetCarrier),
		CreatedAt:     now,
	}

	greeting := entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          greetingText,
		Role:          entity.ChatMessageRoleModel,
		Mode:          string(conversation.ModeKnowledge),
		ChatSessionId: chatSession.Id,
		CreatedAt:     now,
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.ChatSessionRepository().Create(ctx, &chatSession); err != nil {
		return nil, err
	}
	if err := uow.ChatMessageRepository().Create(ctx, &greeting); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	cs.sessionRepo.Save(&memory.SessionState{
		Session:   &chatSession,
		History:   []escalation.Turn{{Role: escalation.RoleAssistant, Content: greeting.Chat}},
		StartedAt: now,
	})

	cs.logger.Info(chatLogModule, "Chat session created", map[string]interface{}{
		"session_id": chatSession.Id.String(),
		"carrier":    chatSession.Carrier,
	})

	return &dto.CreateSessionResponse{
		Id:       chatSession.Id,
		Greeting: toChatDTO(&greeting, nil),
	}, nil
}

func (cs *chatService) GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatSessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.GetAllSessionsResponse, 0, len(chatSessions))
	for _, s := range chatSessions {
		response = append(response, &dto.GetAllSessionsResponse{
			Id:            s.Id,
			Title:         s.Title,
			Carrier:       s.Carrier,
			TargetCarrier: s.TargetCarrier,
			CreatedAt:     s.CreatedAt,
			UpdatedAt:     s.UpdatedAt,
		})
	}
	return response, nil
}

func (cs *chatService) GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	if _, err := findOwnedSession(ctx, uow, userId, sessionId); err != nil {
		return nil, err
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	citationsByMessage, err := cs.loadCitations(ctx, uow, messages)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.GetChatHistoryResponse, 0, len(messages))
	for _, msg := range messages {
		response = append(response, &dto.GetChatHistoryResponse{
			Id:         msg.Id,
			Role:       msg.Role,
			Chat:       msg.Chat,
			Mode:       msg.Mode,
			Confidence: msg.Confidence,
			CreatedAt:  msg.CreatedAt,
			Citations:  citationsByMessage[msg.Id],
		})
	}
	return response, nil
}

func (cs *chatService) loadCitations(ctx context.Context, uow unitofwork.UnitOfWork, messages []*entity.ChatMessage) (map[uuid.UUID][]dto.CitationDTO, error) {
	var ids []uuid.UUID
	for _, msg := range messages {
		if msg.Role == entity.ChatMessageRoleModel {
			ids = append(ids, msg.Id)
		}
	}
	result := make(map[uuid.UUID][]dto.CitationDTO)
	if len(ids) == 0 {
		return result, nil
	}

	citations, err := uow.ChatMessageRepository().FindCitationsByMessageIds(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, c := range citations {
		result[c.ChatMessageId] = append(result[c.ChatMessageId], toCitationDTO(c))
	}
	return result, nil
}

// SendChat runs one conversation turn and stores both messages with the reply's citations.
func (cs *chatService) SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatSession, err := findOwnedSession(ctx, uow, userId, request.ChatSessionId)
	if err != nil {
		return nil, err
	}

	state, err := cs.sessionState(ctx, uow, chatSession)
	if err != nil {
		return nil, err
	}

	userText := strings.TrimSpace(request.Chat)
	if userText == "" {
		userText = request.SelectedOption
	}

	reply, err := cs.orchestrator.HandleTurn(ctx, conversation.Turn{
		SessionID:        chatSession.Id,
		Message:          request.Chat,
		SelectedOption:   request.SelectedOption,
		Carrier:          chatSession.Carrier,
		TargetCarrier:    chatSession.TargetCarrier,
		History:          state.History,
		SessionStartedAt: state.StartedAt,
	})
	if err != nil {
		return nil, err
	}

	now := cs.now()
	sent := entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          userText,
		Role:          entity.ChatMessageRoleUser,
		Mode:          string(reply.Mode),
		ChatSessionId: chatSession.Id,
		CreatedAt:     now,
	}
	answer := entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          reply.Text,
		Role:          entity.ChatMessageRoleModel,
		Mode:          string(reply.Mode),
		Confidence:    reply.Confidence,
		ChatSessionId: chatSession.Id,
		CreatedAt:     now.Add(time.Millisecond),
	}

	citations := make([]*entity.ChatCitation, 0, len(reply.Sources))
	for i := range reply.Sources {
		src := reply.Sources[i]
		citations = append(citations, &entity.ChatCitation{
			Id:              uuid.New(),
			ChatMessageId:   answer.Id,
			KnowledgeItemId: src.Item.Id,
			Score:           src.Score,
			CreatedAt:       now,
			KnowledgeItem:   src.Item,
		})
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().Create(ctx, &sent); err != nil {
		return nil, err
	}
	if err := uow.ChatMessageRepository().Create(ctx, &answer); err != nil {
		return nil, err
	}
	if len(citations) > 0 {
		if err := uow.ChatMessageRepository().CreateCitations(ctx, citations); err != nil {
			return nil, err
		}
	}
	if chatSession.Title == defaultTitle && userText != "" && !strings.HasPrefix(userText, "/") {
		chatSession.Title = truncateRunes(userText, titleMaxRunes)
		if err := uow.ChatSessionRepository().Update(ctx, chatSession); err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	cs.sessionRepo.AppendTurns(chatSession.Id,
		userTurn(userText, string(reply.Mode)),
		escalation.Turn{Role: escalation.RoleAssistant, Content: reply.Text},
	)

	citationDTOs := make([]dto.CitationDTO, 0, len(citations))
	for _, c := range citations {
		citationDTOs = append(citationDTOs, toCitationDTO(c))
	}

	response := &dto.SendChatResponse{
		ChatSessionId:    chatSession.Id,
		Sent:             toChatDTO(&sent, nil),
		Reply:            toChatDTO(&answer, citationDTOs),
		Mode:             string(reply.Mode),
		Actions:          toActionDTOs(reply.Actions),
		Workflow:         toWorkflowStateResponse(reply.Workflow),
		ContextRelevance: reply.ContextRelevance,
		Confidence:       reply.Confidence,
	}
	if reply.Escalation != nil {
		response.Escalation = toTicketResponse(reply.Escalation)
	}
	return response, nil
}

// sessionState returns the cached hot state, rebuilding it from stored messages after a
// restart or cache expiry.
func (cs *chatService) sessionState(ctx context.Context, uow unitofwork.UnitOfWork, chatSession *entity.ChatSession) (*memory.SessionState, error) {
	if state, ok := cs.sessionRepo.Get(chatSession.Id); ok {
		return state, nil
	}

	recent, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: chatSession.Id},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: historyReloadLimit},
	)
	if err != nil {
		return nil, err
	}

	history := make([]escalation.Turn, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].Role == entity.ChatMessageRoleUser {
			history = append(history, userTurn(recent[i].Chat, recent[i].Mode))
			continue
		}
		history = append(history, escalation.Turn{Role: escalation.RoleAssistant, Content: recent[i].Chat})
	}

	state := &memory.SessionState{
		Session:   chatSession,
		History:   history,
		StartedAt: chatSession.CreatedAt,
	}
	cs.sessionRepo.Save(state)
	return state, nil
}

// userTurn tags a user message by how the orchestrator routed it. Workflow answers and
// commands are kept out of the repetition check.
func userTurn(text, mode string) escalation.Turn {
	kind := escalation.KindQuestion
	switch {
	case strings.HasPrefix(text, "/"):
		kind = escalation.KindCommand
	case mode == string(conversation.ModeWorkflow):
		kind = escalation.KindWorkflow
	}
	return escalation.Turn{Role: escalation.RoleUser, Content: text, Kind: kind}
}

func (cs *chatService) DeleteSession(ctx context.Context, userId uuid.UUID, request *dto.DeleteSessionRequest) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	if _, err := findOwnedSession(ctx, uow, userId, request.ChatSessionId); err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().DeleteByChatSessionId(ctx, request.ChatSessionId); err != nil {
		return err
	}
	if err := uow.ChatSessionRepository().Delete(ctx, request.ChatSessionId); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	cs.sessionRepo.Delete(request.ChatSessionId)
	return nil
}

// VerifySession checks that the session exists and belongs to the user.
func (cs *chatService) VerifySession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error {
	_, err := findOwnedSession(ctx, cs.uowFactory.NewUnitOfWork(ctx), userId, sessionId)
	return err
}

// findOwnedSession returns NotFound for sessions of other users as well as missing ones.
func findOwnedSession(ctx context.Context, uow unitofwork.UnitOfWork, userId, sessionId uuid.UUID) (*entity.ChatSession, error) {
	chatSession, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if chatSession == nil {
		return nil, apperror.NotFound("chat session %s", sessionId)
	}
	return chatSession, nil
}

func sessionTitle(carrier, targetCarrier string) string {
	carrier, targetCarrier = strings.TrimSpace(carrier), strings.TrimSpace(targetCarrier)
	if carrier == "" || targetCarrier == "" {
		return defaultTitle
	}
	return fmt.Sprintf("%s → %s", carrier, targetCarrier)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}

func toChatDTO(msg *entity.ChatMessage, citations []dto.CitationDTO) *dto.SendChatResponseChat {
	return &dto.SendChatResponseChat{
		Id:        msg.Id,
		Chat:      msg.Chat,
		Role:      msg.Role,
		CreatedAt: msg.CreatedAt,
		Citations: citations,
	}
}

func toCitationDTO(c *entity.ChatCitation) dto.CitationDTO {
	out := dto.CitationDTO{KnowledgeItemId: c.KnowledgeItemId, Score: c.Score}
	if c.KnowledgeItem != nil {
		out.Question = c.KnowledgeItem.Question
		out.Category = c.KnowledgeItem.Category
	}
	return out
}

func toActionDTOs(actions []conversation.Action) []dto.ActionDTO {
	if len(actions) == 0 {
		return nil
	}
	out := make([]dto.ActionDTO, 0, len(actions))
	for _, a := range actions {
		out = append(out, dto.ActionDTO{Type: a.Type, Label: a.Label, Value: a.Value})
	}
	return out
}
