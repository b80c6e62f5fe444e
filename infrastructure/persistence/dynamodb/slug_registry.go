package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"catalog/domain/core/entities"
	"catalog/domain/core/valueobjects"
	pkgerrors "catalog/pkg/errors"
)

// API is the subset of the DynamoDB client the registry uses
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Item layout, single table:
//
//	SLUG#<slug>            / SLUG         the registration row, one per slug value
//	ENTITY#<type>#<id>     / ACTIVE       pointer to the entity's active slug
//	ENTITY#<type>#<id>     / SLUG#<slug>  index of every slug the entity holds
const (
	skSlug   = "SLUG"
	skActive = "ACTIVE"

	// TransactWriteItems accepts at most 100 actions.
	maxTransactItems = 100
)

// SlugRecord is the registration row in DynamoDB
type SlugRecord struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	Slug       string `dynamodbav:"Slug"`
	EntityType string `dynamodbav:"EntityType"`
	EntityID   string `dynamodbav:"EntityID"`
	IsActive   bool   `dynamodbav:"IsActive"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
}

type pointerRecord struct {
	PK   string `dynamodbav:"PK"`
	SK   string `dynamodbav:"SK"`
	Slug string `dynamodbav:"Slug"`
}

func slugPK(slug string) string { return "SLUG#" + slug }

func entityPK(entityType valueobjects.EntityType, entityID int64) string {
	return fmt.Sprintf("ENTITY#%s#%d", entityType, entityID)
}

func key(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

// SlugRegistry implements ports.SlugRegistry on a DynamoDB table using
// conditional transactional writes for the uniqueness constraints.
type SlugRegistry struct {
	client    API
	tableName string
	logger    *zap.Logger
	now       func() time.Time
}

// NewSlugRegistry creates a registry on tableName
func NewSlugRegistry(client API, tableName string, logger *zap.Logger) *SlugRegistry {
	return &SlugRegistry{
		client:    client,
		tableName: tableName,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (r *SlugRegistry) getSlug(ctx context.Context, slug string) (*SlugRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            key(slugPK(slug), skSlug),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, mapError("get_slug", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec SlugRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, pkgerrors.StorageFailure("unmarshal_slug", err)
	}
	return &rec, nil
}

func (r *SlugRegistry) getActivePointer(ctx context.Context, entityType valueobjects.EntityType, entityID int64) (*pointerRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            key(entityPK(entityType, entityID), skActive),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, mapError("get_active_slug", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec pointerRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, pkgerrors.StorageFailure("unmarshal_pointer", err)
	}
	return &rec, nil
}

func owned(rec *SlugRecord, entityType valueobjects.EntityType, entityID int64) bool {
	return rec.EntityType == string(entityType) && rec.EntityID == strconv.FormatInt(entityID, 10)
}

func ownerCondition(entityType valueobjects.EntityType, entityID int64) expression.ConditionBuilder {
	return expression.Name("EntityType").Equal(expression.Value(string(entityType))).
		And(expression.Name("EntityID").Equal(expression.Value(strconv.FormatInt(entityID, 10))))
}

// RegisterSlug makes slug the active slug of the entity. All row changes are
// one TransactWriteItems call; a lost race cancels it.
func (r *SlugRegistry) RegisterSlug(ctx context.Context, entityType valueobjects.EntityType, entityID int64, slug valueobjects.Slug) error {
	value := slug.String()
	existing, err := r.getSlug(ctx, value)
	if err != nil {
		return err
	}
	if existing != nil && !owned(existing, entityType, entityID) {
		return pkgerrors.SlugAlreadyInUse(value)
	}
	if existing != nil && existing.IsActive {
		return nil
	}

	pointer, err := r.getActivePointer(ctx, entityType, entityID)
	if err != nil {
		return err
	}

	now := r.now().Format(time.RFC3339Nano)
	var items []types.TransactWriteItem

	// 1. the registration row itself
	if existing == nil {
		rec := SlugRecord{
			PK:         slugPK(value),
			SK:         skSlug,
			Slug:       value,
			EntityType: string(entityType),
			EntityID:   strconv.FormatInt(entityID, 10),
			IsActive:   true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		item, err := attributevalue.MarshalMap(rec)
		if err != nil {
			return pkgerrors.StorageFailure("marshal_slug", err)
		}
		expr, err := expression.NewBuilder().
			WithCondition(expression.AttributeNotExists(expression.Name("PK"))).
			Build()
		if err != nil {
			return pkgerrors.StorageFailure("build_expression", err)
		}
		items = append(items, types.TransactWriteItem{Put: &types.Put{
			TableName:                 aws.String(r.tableName),
			Item:                      item,
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		}})
	} else {
		item, err := r.setActive(value, true, now, ownerCondition(entityType, entityID))
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	// 2. the previous active row goes to history
	if pointer != nil && pointer.Slug != value {
		item, err := r.setActive(pointer.Slug, false, now,
			ownerCondition(entityType, entityID).And(expression.Name("IsActive").Equal(expression.Value(true))))
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	// 3. the active pointer, guarded so two registrations cannot both win
	var pointerCond expression.ConditionBuilder
	if pointer != nil {
		pointerCond = expression.Name("Slug").Equal(expression.Value(pointer.Slug))
	} else {
		pointerCond = expression.AttributeNotExists(expression.Name("PK"))
	}
	pointerItem, err := attributevalue.MarshalMap(pointerRecord{PK: entityPK(entityType, entityID), SK: skActive, Slug: value})
	if err != nil {
		return pkgerrors.StorageFailure("marshal_pointer", err)
	}
	pexpr, err := expression.NewBuilder().WithCondition(pointerCond).Build()
	if err != nil {
		return pkgerrors.StorageFailure("build_expression", err)
	}
	items = append(items, types.TransactWriteItem{Put: &types.Put{
		TableName:                 aws.String(r.tableName),
		Item:                      pointerItem,
		ConditionExpression:       pexpr.Condition(),
		ExpressionAttributeNames:  pexpr.Names(),
		ExpressionAttributeValues: pexpr.Values(),
	}})

	// 4. the per-entity index row
	indexItem, err := attributevalue.MarshalMap(pointerRecord{PK: entityPK(entityType, entityID), SK: slugPK(value), Slug: value})
	if err != nil {
		return pkgerrors.StorageFailure("marshal_index", err)
	}
	items = append(items, types.TransactWriteItem{Put: &types.Put{
		TableName: aws.String(r.tableName),
		Item:      indexItem,
	}})

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		return registerError(value, err)
	}

	r.logger.Debug("Slug registered",
		zap.String("slug", value),
		zap.String("entity_type", string(entityType)),
		zap.Int64("entity_id", entityID),
	)
	return nil
}

func (r *SlugRegistry) setActive(slug string, active bool, now string, cond expression.ConditionBuilder) (types.TransactWriteItem, error) {
	update := expression.Set(expression.Name("IsActive"), expression.Value(active)).
		Set(expression.Name("UpdatedAt"), expression.Value(now))
	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return types.TransactWriteItem{}, pkgerrors.StorageFailure("build_expression", err)
	}
	return types.TransactWriteItem{Update: &types.Update{
		TableName:                 aws.String(r.tableName),
		Key:                       key(slugPK(slug), skSlug),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}}, nil
}

// registerError reads the cancellation reasons: a failed check on the first
// item means the slug row was taken, anything else is a concurrent
// registration for the same entity.
func registerError(slug string, err error) error {
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for i, reason := range tce.CancellationReasons {
			if reason.Code == nil || *reason.Code != "ConditionalCheckFailed" {
				continue
			}
			if i == 0 {
				return pkgerrors.SlugAlreadyInUse(slug).WithCause(err)
			}
			return pkgerrors.ErrConcurrencyConflict.New().WithCause(err).WithDetail("slug", slug)
		}
	}
	return mapError("register_slug", err)
}

// IsSlugAvailable reports whether no row exists for slug
func (r *SlugRegistry) IsSlugAvailable(ctx context.Context, slug valueobjects.Slug) (bool, error) {
	rec, err := r.getSlug(ctx, slug.String())
	if err != nil {
		return false, err
	}
	return rec == nil, nil
}

// IsSlugAvailableForEntity reports whether no other entity holds slug
func (r *SlugRegistry) IsSlugAvailableForEntity(ctx context.Context, slug valueobjects.Slug, entityType valueobjects.EntityType, entityID int64) (bool, error) {
	rec, err := r.getSlug(ctx, slug.String())
	if err != nil {
		return false, err
	}
	return rec == nil || owned(rec, entityType, entityID), nil
}

// UnregisterAllSlugsOfEntity deletes every registration and index row of
// the entity, and its active pointer.
func (r *SlugRegistry) UnregisterAllSlugsOfEntity(ctx context.Context, entityType valueobjects.EntityType, entityID int64) error {
	pk := entityPK(entityType, entityID)
	keyEx := expression.Key("PK").Equal(expression.Value(pk))
	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return pkgerrors.StorageFailure("build_expression", err)
	}

	var deletes []types.TransactWriteItem
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
			ConsistentRead:            aws.Bool(true),
		})
		if err != nil {
			return mapError("unregister_slugs", err)
		}
		for _, item := range out.Items {
			var rec pointerRecord
			if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
				return pkgerrors.StorageFailure("unmarshal_index", err)
			}
			deletes = append(deletes, types.TransactWriteItem{Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key:       key(rec.PK, rec.SK),
			}})
			if rec.SK != skActive {
				deletes = append(deletes, types.TransactWriteItem{Delete: &types.Delete{
					TableName: aws.String(r.tableName),
					Key:       key(slugPK(rec.Slug), skSlug),
				}})
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	for start := 0; start < len(deletes); start += maxTransactItems {
		end := start + maxTransactItems
		if end > len(deletes) {
			end = len(deletes)
		}
		if _, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: deletes[start:end],
		}); err != nil {
			return mapError("unregister_slugs", err)
		}
	}

	r.logger.Debug("Slugs unregistered",
		zap.String("entity_type", string(entityType)),
		zap.Int64("entity_id", entityID),
		zap.Int("items", len(deletes)),
	)
	return nil
}

// Lookup returns the registration for slug in any state
func (r *SlugRegistry) Lookup(ctx context.Context, slug valueobjects.Slug) (*entities.SlugRegistration, error) {
	rec, err := r.getSlug(ctx, slug.String())
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, pkgerrors.ErrSlugNotFound.New().WithDetail("slug", slug.String())
	}
	return toRegistration(rec)
}

// ActiveSlug returns the active registration of the entity
func (r *SlugRegistry) ActiveSlug(ctx context.Context, entityType valueobjects.EntityType, entityID int64) (*entities.SlugRegistration, error) {
	pointer, err := r.getActivePointer(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	notFound := pkgerrors.ErrSlugNotFound.New().
		WithDetail("entity_type", string(entityType)).
		WithDetail("entity_id", entityID)
	if pointer == nil {
		return nil, notFound
	}
	rec, err := r.getSlug(ctx, pointer.Slug)
	if err != nil {
		return nil, err
	}
	if rec == nil || !rec.IsActive {
		return nil, notFound
	}
	return toRegistration(rec)
}

func toRegistration(rec *SlugRecord) (*entities.SlugRegistration, error) {
	id, err := strconv.ParseInt(rec.EntityID, 10, 64)
	if err != nil {
		return nil, pkgerrors.StorageFailure("parse_entity_id", err)
	}
	created, _ := time.Parse(time.RFC3339Nano, rec.CreatedAt)
	updated, _ := time.Parse(time.RFC3339Nano, rec.UpdatedAt)
	return &entities.SlugRegistration{
		Slug:       rec.Slug,
		EntityType: valueobjects.EntityType(rec.EntityType),
		EntityID:   id,
		IsActive:   rec.IsActive,
		CreatedAt:  created,
		UpdatedAt:  updated,
	}, nil
}

// mapError converts SDK errors, following the smithy API error codes.
func mapError(op string, err error) error {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "ConditionalCheckFailedException", "TransactionConflictException":
			return pkgerrors.ErrConcurrencyConflict.New().WithCause(err).WithDetail("operation", op)
		case "ProvisionedThroughputExceededException", "RequestLimitExceeded", "ThrottlingException":
			return pkgerrors.StorageFailure(op, err).WithRetryable(true)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return pkgerrors.Normalize(err)
	}
	return pkgerrors.StorageFailure(op, err)
}
