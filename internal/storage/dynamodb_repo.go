package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"innerworld-backend/internal/config"
	"innerworld-backend/internal/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// newItemID mirrors the in-memory repositories' id generation so
// records look identical regardless of backend.
func newItemID() string {
	return uuid.New().String()
}

// getLocalEndpoint returns a LocalStack-style DynamoDB endpoint
// override when DYNAMODB_ENDPOINT is set, for local runs against
// docker-compose instead of real AWS.
func getLocalEndpoint() string {
	return os.Getenv("DYNAMODB_ENDPOINT")
}

func isConditionalCheckFailed(err error) bool {
	var condFailed *ddbtypes.ConditionalCheckFailedException
	return errors.As(err, &condFailed)
}

// DynamoDBClient is the subset of *dynamodb.Client the repositories
// below call through, narrowed the way the teacher's DynamoDBClient
// interface narrows the AWS SDK surface so tests can swap in a fake.
type DynamoDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// NewDynamoDBClient loads the default AWS config (region, credentials
// chain) and returns a live *dynamodb.Client, following the teacher's
// cmd/test-integration LocalStack wiring pattern for local runs.
func NewDynamoDBClient(ctx context.Context, region string) (*dynamodb.Client, error) {
	optFns := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		optFns = append(optFns, awsconfig.WithRegion(region))
	}
	if endpoint := getLocalEndpoint(); endpoint != "" {
		optFns = append(optFns, awsconfig.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{URL: endpoint}, nil
			}),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg), nil
}

// NewRepositories wires the four DynamoDB-backed repositories against
// the table names in cfg, the production counterpart to
// NewInMemoryRepositories.
func NewRepositories(client DynamoDBClient, cfg config.DynamoDBConfig) *Repositories {
	return &Repositories{
		Sessions:      &DynamoDBSessionRepository{client: client, table: cfg.SessionsTable},
		Messages:      &DynamoDBMessageRepository{client: client, table: cfg.MessagesTable},
		Memories:      &DynamoDBMemoryRepository{client: client, table: cfg.MemoriesTable},
		PersonaConfig: &DynamoDBPersonaConfigRepository{client: client, table: cfg.PersonaConfigsTable},
	}
}

// sessionItem is the DynamoDB projection of types.Session. Partition
// key: session_id.
type sessionItem struct {
	SessionID      string `dynamodbav:"session_id"`
	Title          string `dynamodbav:"title"`
	Problem        string `dynamodbav:"problem"`
	Status         string `dynamodbav:"status"`
	FinalSolution  string `dynamodbav:"final_solution,omitempty"`
	CurrentPersona string `dynamodbav:"current_persona,omitempty"`
	CreatedAt      string `dynamodbav:"created_at"`
	UpdatedAt      string `dynamodbav:"updated_at"`
}

func toSessionItem(s *types.Session) sessionItem {
	return sessionItem{
		SessionID:      s.ID,
		Title:          s.Title,
		Problem:        s.Problem,
		Status:         string(s.Status),
		FinalSolution:  s.FinalSolution,
		CurrentPersona: string(s.CurrentPersona),
		CreatedAt:      s.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:      s.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func (i sessionItem) toSession() types.Session {
	created, _ := time.Parse(time.RFC3339Nano, i.CreatedAt)
	updated, _ := time.Parse(time.RFC3339Nano, i.UpdatedAt)
	return types.Session{
		ID:             i.SessionID,
		Title:          i.Title,
		Problem:        i.Problem,
		Status:         types.SessionStatus(i.Status),
		FinalSolution:  i.FinalSolution,
		CurrentPersona: types.Persona(i.CurrentPersona),
		CreatedAt:      created,
		UpdatedAt:      updated,
	}
}

// DynamoDBSessionRepository persists Session aggregates, one item per
// session keyed by session_id.
type DynamoDBSessionRepository struct {
	client DynamoDBClient
	table  string
}

func (r *DynamoDBSessionRepository) Create(ctx context.Context, session *types.Session) error {
	if session.ID == "" {
		session.ID = "session_" + newItemID()
	}
	item, err := attributevalue.MarshalMap(toSessionItem(session))
	if err != nil {
		return types.NewError(types.ErrInternal, "failed to marshal session item", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(r.table), Item: item})
	if err != nil {
		return types.NewError(types.ErrTransientBackend, "failed to put session item", err)
	}
	log.Printf("DynamoDBSessionRepository: created session %s", session.ID)
	return nil
}

func (r *DynamoDBSessionRepository) Get(ctx context.Context, sessionID string) (*types.Session, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key:       map[string]ddbtypes.AttributeValue{"session_id": &ddbtypes.AttributeValueMemberS{Value: sessionID}},
	})
	if err != nil {
		return nil, types.NewError(types.ErrTransientBackend, "failed to get session item", err)
	}
	if out.Item == nil {
		return nil, types.NewError(types.ErrNotFound, fmt.Sprintf("session %s not found", sessionID), nil)
	}
	var item sessionItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, types.NewError(types.ErrInternal, "failed to unmarshal session item", err)
	}
	session := item.toSession()
	return &session, nil
}

func (r *DynamoDBSessionRepository) Update(ctx context.Context, session *types.Session) error {
	item, err := attributevalue.MarshalMap(toSessionItem(session))
	if err != nil {
		return types.NewError(types.ErrInternal, "failed to marshal session item", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_exists(session_id)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return types.NewError(types.ErrNotFound, fmt.Sprintf("session %s not found", session.ID), err)
		}
		return types.NewError(types.ErrTransientBackend, "failed to update session item", err)
	}
	return nil
}

// messageItem is the DynamoDB projection of types.Message. Partition
// key: session_id, sort key: sort_key (zero-padded nanosecond
// timestamp + message id, so Query returns messages in arrival order
// without a client-side sort).
type messageItem struct {
	SessionID         string `dynamodbav:"session_id"`
	SortKey           string `dynamodbav:"sort_key"`
	MessageID         string `dynamodbav:"message_id"`
	FromPersona       string `dynamodbav:"from_persona"`
	ToPersona         string `dynamodbav:"to_persona,omitempty"`
	Content           string `dynamodbav:"content"`
	Kind              string `dynamodbav:"kind"`
	InternalReasoning string `dynamodbav:"internal_reasoning,omitempty"`
	Timestamp         string `dynamodbav:"timestamp"`
	ParentMessageID   string `dynamodbav:"parent_message_id,omitempty"`
	DelegateTarget    string `dynamodbav:"delegate_target,omitempty"`
	DelegationContext string `dynamodbav:"delegation_context,omitempty"`
	Stuck             bool   `dynamodbav:"stuck,omitempty"`
	RawResponse       string `dynamodbav:"raw_response,omitempty"`
}

func messageSortKey(ts time.Time, messageID string) string {
	return fmt.Sprintf("%020d#%s", ts.UnixNano(), messageID)
}

func toMessageItem(m *types.Message) messageItem {
	return messageItem{
		SessionID:         m.SessionID,
		SortKey:           messageSortKey(m.Timestamp, m.ID),
		MessageID:         m.ID,
		FromPersona:       string(m.FromPersona),
		ToPersona:         string(m.ToPersona),
		Content:           m.Content,
		Kind:              string(m.Kind),
		InternalReasoning: m.InternalReasoning,
		Timestamp:         m.Timestamp.Format(time.RFC3339Nano),
		ParentMessageID:   m.ParentMessageID,
		DelegateTarget:    string(m.DelegateTarget),
		DelegationContext: m.DelegationContext,
		Stuck:             m.Stuck,
		RawResponse:       m.RawResponse,
	}
}

func (i messageItem) toMessage() types.Message {
	ts, _ := time.Parse(time.RFC3339Nano, i.Timestamp)
	return types.Message{
		ID:                i.MessageID,
		SessionID:         i.SessionID,
		FromPersona:       types.Persona(i.FromPersona),
		ToPersona:         types.Persona(i.ToPersona),
		Content:           i.Content,
		Kind:              types.MessageKind(i.Kind),
		InternalReasoning: i.InternalReasoning,
		Timestamp:         ts,
		ParentMessageID:   i.ParentMessageID,
		DelegateTarget:    types.Persona(i.DelegateTarget),
		DelegationContext: i.DelegationContext,
		Stuck:             i.Stuck,
		RawResponse:       i.RawResponse,
	}
}

// DynamoDBMessageRepository appends the per-session conversation log,
// one item per message under a shared session_id partition.
type DynamoDBMessageRepository struct {
	client DynamoDBClient
	table  string
}

func (r *DynamoDBMessageRepository) Append(ctx context.Context, message *types.Message) error {
	if message.ID == "" {
		message.ID = "msg_" + newItemID()
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}
	item, err := attributevalue.MarshalMap(toMessageItem(message))
	if err != nil {
		return types.NewError(types.ErrInternal, "failed to marshal message item", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(r.table), Item: item})
	if err != nil {
		return types.NewError(types.ErrTransientBackend, "failed to put message item", err)
	}
	return nil
}

func (r *DynamoDBMessageRepository) ListBySession(ctx context.Context, sessionID string) ([]types.Message, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		KeyConditionExpression: aws.String("session_id = :session_id"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":session_id": &ddbtypes.AttributeValueMemberS{Value: sessionID},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, types.NewError(types.ErrTransientBackend, "failed to query messages", err)
	}

	messages := make([]types.Message, 0, len(out.Items))
	for _, rawItem := range out.Items {
		var item messageItem
		if err := attributevalue.UnmarshalMap(rawItem, &item); err != nil {
			return nil, types.NewError(types.ErrInternal, "failed to unmarshal message item", err)
		}
		messages = append(messages, item.toMessage())
	}
	return messages, nil
}

// memoryItem is the DynamoDB projection of types.Memory. Partition
// key: session_id, sort key: persona#identifier, mirroring the
// (session, persona, identifier) uniqueness invariant.
type memoryItem struct {
	SessionID    string `dynamodbav:"session_id"`
	SortKey      string `dynamodbav:"sort_key"`
	MemoryID     string `dynamodbav:"memory_id"`
	Persona      string `dynamodbav:"persona"`
	Identifier   string `dynamodbav:"identifier"`
	Content      string `dynamodbav:"content"`
	CreatedAt    string `dynamodbav:"created_at"`
	AccessCount  int    `dynamodbav:"access_count"`
	LastAccessAt string `dynamodbav:"last_access_at,omitempty"`
}

func memorySortKey(persona types.Persona, identifier string) string {
	return fmt.Sprintf("%s#%s", persona, identifier)
}

func toMemoryItem(m *types.Memory) memoryItem {
	item := memoryItem{
		SessionID:   m.SessionID,
		SortKey:     memorySortKey(m.Persona, m.Identifier),
		MemoryID:    m.ID,
		Persona:     string(m.Persona),
		Identifier:  m.Identifier,
		Content:     m.Content,
		CreatedAt:   m.CreatedAt.Format(time.RFC3339Nano),
		AccessCount: m.AccessCount,
	}
	if m.LastAccessAt != nil {
		item.LastAccessAt = m.LastAccessAt.Format(time.RFC3339Nano)
	}
	return item
}

func (i memoryItem) toMemory() types.Memory {
	created, _ := time.Parse(time.RFC3339Nano, i.CreatedAt)
	mem := types.Memory{
		ID:          i.MemoryID,
		SessionID:   i.SessionID,
		Persona:     types.Persona(i.Persona),
		Identifier:  i.Identifier,
		Content:     i.Content,
		CreatedAt:   created,
		AccessCount: i.AccessCount,
	}
	if i.LastAccessAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, i.LastAccessAt); err == nil {
			mem.LastAccessAt = &t
		}
	}
	return mem
}

// DynamoDBMemoryRepository persists per-(session,persona) notes.
type DynamoDBMemoryRepository struct {
	client DynamoDBClient
	table  string
}

func (r *DynamoDBMemoryRepository) Upsert(ctx context.Context, memory *types.Memory) error {
	existing, err := r.Get(ctx, memory.SessionID, memory.Persona, memory.Identifier)
	if err != nil {
		return err
	}
	if existing != nil {
		memory.ID = existing.ID
		memory.AccessCount = existing.AccessCount
	}
	if memory.ID == "" {
		memory.ID = "mem_" + newItemID()
	}
	item, err := attributevalue.MarshalMap(toMemoryItem(memory))
	if err != nil {
		return types.NewError(types.ErrInternal, "failed to marshal memory item", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(r.table), Item: item})
	if err != nil {
		return types.NewError(types.ErrTransientBackend, "failed to put memory item", err)
	}
	return nil
}

func (r *DynamoDBMemoryRepository) Get(ctx context.Context, sessionID string, persona types.Persona, identifier string) (*types.Memory, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]ddbtypes.AttributeValue{
			"session_id": &ddbtypes.AttributeValueMemberS{Value: sessionID},
			"sort_key":   &ddbtypes.AttributeValueMemberS{Value: memorySortKey(persona, identifier)},
		},
	})
	if err != nil {
		return nil, types.NewError(types.ErrTransientBackend, "failed to get memory item", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	var item memoryItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, types.NewError(types.ErrInternal, "failed to unmarshal memory item", err)
	}
	mem := item.toMemory()
	return &mem, nil
}

func (r *DynamoDBMemoryRepository) ListByPersona(ctx context.Context, sessionID string, persona types.Persona) ([]types.Memory, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		KeyConditionExpression: aws.String("session_id = :session_id AND begins_with(sort_key, :prefix)"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":session_id": &ddbtypes.AttributeValueMemberS{Value: sessionID},
			":prefix":     &ddbtypes.AttributeValueMemberS{Value: string(persona) + "#"},
		},
	})
	if err != nil {
		return nil, types.NewError(types.ErrTransientBackend, "failed to query memories", err)
	}

	memories := make([]types.Memory, 0, len(out.Items))
	for _, rawItem := range out.Items {
		var item memoryItem
		if err := attributevalue.UnmarshalMap(rawItem, &item); err != nil {
			return nil, types.NewError(types.ErrInternal, "failed to unmarshal memory item", err)
		}
		memories = append(memories, item.toMemory())
	}
	return memories, nil
}

func (r *DynamoDBMemoryRepository) Touch(ctx context.Context, memory *types.Memory) error {
	now := time.Now()
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.table),
		Key: map[string]ddbtypes.AttributeValue{
			"session_id": &ddbtypes.AttributeValueMemberS{Value: memory.SessionID},
			"sort_key":   &ddbtypes.AttributeValueMemberS{Value: memorySortKey(memory.Persona, memory.Identifier)},
		},
		UpdateExpression: aws.String("ADD access_count :one SET last_access_at = :now"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":one": &ddbtypes.AttributeValueMemberN{Value: "1"},
			":now": &ddbtypes.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
		},
		ReturnValues: ddbtypes.ReturnValueAllNew,
	})
	if err != nil {
		return types.NewError(types.ErrTransientBackend, "failed to touch memory item", err)
	}
	var item memoryItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return types.NewError(types.ErrInternal, "failed to unmarshal touched memory item", err)
	}
	memory.AccessCount = item.AccessCount
	memory.LastAccessAt = &now
	return nil
}

// personaConfigItem is the DynamoDB projection of
// types.PersonaConfiguration. Partition key: persona. Not
// session-scoped: one row per roster member, shared across sessions.
type personaConfigItem struct {
	Persona      string  `dynamodbav:"persona"`
	DisplayName  string  `dynamodbav:"display_name"`
	Model        string  `dynamodbav:"model"`
	SystemPrompt string  `dynamodbav:"system_prompt"`
	Temperature  float64 `dynamodbav:"temperature"`
	MaxTokens    int     `dynamodbav:"max_tokens"`
	Enabled      bool    `dynamodbav:"enabled"`
	SortOrder    int     `dynamodbav:"sort_order"`
}

func toPersonaConfigItem(c *types.PersonaConfiguration) personaConfigItem {
	return personaConfigItem{
		Persona:      string(c.Persona),
		DisplayName:  c.DisplayName,
		Model:        c.Model,
		SystemPrompt: c.SystemPrompt,
		Temperature:  c.Temperature,
		MaxTokens:    c.MaxTokens,
		Enabled:      c.Enabled,
		SortOrder:    c.SortOrder,
	}
}

func (i personaConfigItem) toPersonaConfig() types.PersonaConfiguration {
	return types.PersonaConfiguration{
		Persona:      types.Persona(i.Persona),
		DisplayName:  i.DisplayName,
		Model:        i.Model,
		SystemPrompt: i.SystemPrompt,
		Temperature:  i.Temperature,
		MaxTokens:    i.MaxTokens,
		Enabled:      i.Enabled,
		SortOrder:    i.SortOrder,
	}
}

// DynamoDBPersonaConfigRepository persists the seeded, overridable
// roster. A table scan is acceptable here: ten rows, read at startup
// and on every Loader refresh.
type DynamoDBPersonaConfigRepository struct {
	client DynamoDBClient
	table  string
}

func (r *DynamoDBPersonaConfigRepository) Get(ctx context.Context, persona types.Persona) (*types.PersonaConfiguration, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key:       map[string]ddbtypes.AttributeValue{"persona": &ddbtypes.AttributeValueMemberS{Value: string(persona)}},
	})
	if err != nil {
		return nil, types.NewError(types.ErrTransientBackend, "failed to get persona config item", err)
	}
	if out.Item == nil {
		return nil, types.NewError(types.ErrNotFound, fmt.Sprintf("persona %s not configured", persona), nil)
	}
	var item personaConfigItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, types.NewError(types.ErrInternal, "failed to unmarshal persona config item", err)
	}
	cfg := item.toPersonaConfig()
	return &cfg, nil
}

func (r *DynamoDBPersonaConfigRepository) List(ctx context.Context) ([]types.PersonaConfiguration, error) {
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{TableName: aws.String(r.table)})
	if err != nil {
		return nil, types.NewError(types.ErrTransientBackend, "failed to scan persona config table", err)
	}

	configs := make([]types.PersonaConfiguration, 0, len(out.Items))
	for _, rawItem := range out.Items {
		var item personaConfigItem
		if err := attributevalue.UnmarshalMap(rawItem, &item); err != nil {
			return nil, types.NewError(types.ErrInternal, "failed to unmarshal persona config item", err)
		}
		configs = append(configs, item.toPersonaConfig())
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].SortOrder < configs[j].SortOrder })
	return configs, nil
}

func (r *DynamoDBPersonaConfigRepository) SeedDefaults(ctx context.Context, defaults []types.PersonaConfiguration) error {
	existing, err := r.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Printf("DynamoDBPersonaConfigRepository: seed skipped, %d personas already configured", len(existing))
		return nil
	}

	for _, cfg := range defaults {
		item, err := attributevalue.MarshalMap(toPersonaConfigItem(&cfg))
		if err != nil {
			return types.NewError(types.ErrInternal, "failed to marshal persona config item", err)
		}
		if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(r.table), Item: item}); err != nil {
			return types.NewError(types.ErrTransientBackend, "failed to put persona config item", err)
		}
	}
	log.Printf("DynamoDBPersonaConfigRepository: seeded %d personas", len(defaults))
	return nil
}
