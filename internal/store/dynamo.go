package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/recipelens/backend/internal/models"
)

// ErrNotFound is returned when a key has no record.
var ErrNotFound = errors.New("record not found")

// batchGetLimit is the store's hard cap on keys per BatchGetItem call.
const batchGetLimit = 100

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Store is the durable key-value layer: recipes, meal plans and users in
// single-partition-key tables. It is the source of truth; the vector index
// is always derivable from it.
type Store struct {
	client        DynamoAPI
	recipeTable   string
	mealPlanTable string
	userTable     string
	logger        *zap.Logger
}

// New creates a Store over the given client and table names. The meal plan
// table name derives from the recipe table, mirroring the deployed naming.
func New(client DynamoAPI, recipeTable, userTable string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client:        client,
		recipeTable:   recipeTable,
		mealPlanTable: recipeTable + "-meal-plans",
		userTable:     userTable,
		logger:        logger,
	}
}

// SaveRecipe writes the recipe, stamping UpdatedAt (and CreatedAt when
// unset). Writes are upserts: a repeated save with the same id overwrites.
func (s *Store) SaveRecipe(ctx context.Context, recipe *models.Recipe) error {
	now := time.Now().UTC()
	if recipe.CreatedAt.IsZero() {
		recipe.CreatedAt = now
	}
	recipe.UpdatedAt = now

	item, err := attributevalue.MarshalMap(recipe)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.recipeTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put recipe %s: %w", recipe.ID, err)
	}
	return nil
}

// GetRecipe fetches one recipe by id.
func (s *Store) GetRecipe(ctx context.Context, id string) (*models.Recipe, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.recipeTable),
		Key:       recipeKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe %s: %w", id, err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var recipe models.Recipe
	if err := attributevalue.UnmarshalMap(out.Item, &recipe); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipe %s: %w", id, err)
	}
	return &recipe, nil
}

// GetAllRecipes scans the full table, following pagination.
func (s *Store) GetAllRecipes(ctx context.Context) ([]*models.Recipe, error) {
	var recipes []*models.Recipe
	var startKey map[string]types.AttributeValue

	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.recipeTable),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipes: %w", err)
		}

		var page []*models.Recipe
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recipes: %w", err)
		}
		recipes = append(recipes, page...)

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return recipes, nil
}

// GetRecipesByIDs batch-fetches recipes. The result carries no ordering
// guarantee; callers needing ranked order must re-sort themselves.
func (s *Store) GetRecipesByIDs(ctx context.Context, ids []string) ([]*models.Recipe, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var recipes []*models.Recipe
	for start := 0; start < len(ids); start += batchGetLimit {
		end := start + batchGetLimit
		if end > len(ids) {
			end = len(ids)
		}

		keys := make([]map[string]types.AttributeValue, 0, end-start)
		for _, id := range ids[start:end] {
			keys = append(keys, recipeKey(id))
		}

		out, err := s.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
			RequestItems: map[string]types.KeysAndAttributes{
				s.recipeTable: {Keys: keys},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to batch get recipes: %w", err)
		}

		var page []*models.Recipe
		if err := attributevalue.UnmarshalListOfMaps(out.Responses[s.recipeTable], &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recipes: %w", err)
		}
		recipes = append(recipes, page...)
	}
	return recipes, nil
}

// DeleteRecipe removes the recipe record. Deleting a missing id is a no-op.
func (s *Store) DeleteRecipe(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.recipeTable),
		Key:       recipeKey(id),
	})
	if err != nil {
		return fmt.Errorf("failed to delete recipe %s: %w", id, err)
	}
	return nil
}

// SaveMealPlan writes the plan, stamping timestamps like SaveRecipe.
func (s *Store) SaveMealPlan(ctx context.Context, plan *models.MealPlan) error {
	now := time.Now().UTC()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now

	item, err := attributevalue.MarshalMap(plan)
	if err != nil {
		return fmt.Errorf("failed to marshal meal plan: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.mealPlanTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put meal plan %s: %w", plan.ID, err)
	}
	return nil
}

// GetMealPlan fetches one plan by id.
func (s *Store) GetMealPlan(ctx context.Context, id string) (*models.MealPlan, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.mealPlanTable),
		Key:       idKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get meal plan %s: %w", id, err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var plan models.MealPlan
	if err := attributevalue.UnmarshalMap(out.Item, &plan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal meal plan %s: %w", id, err)
	}
	return &plan, nil
}

// GetAllMealPlans scans the meal plan table.
func (s *Store) GetAllMealPlans(ctx context.Context) ([]*models.MealPlan, error) {
	var plans []*models.MealPlan
	var startKey map[string]types.AttributeValue

	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.mealPlanTable),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan meal plans: %w", err)
		}

		var page []*models.MealPlan
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal meal plans: %w", err)
		}
		plans = append(plans, page...)

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return plans, nil
}

// DeleteMealPlan removes the plan record.
func (s *Store) DeleteMealPlan(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.mealPlanTable),
		Key:       idKey(id),
	})
	if err != nil {
		return fmt.Errorf("failed to delete meal plan %s: %w", id, err)
	}
	return nil
}

// SaveUser writes a user record keyed by email.
func (s *Store) SaveUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.userTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put user: %w", err)
	}
	return nil
}

// GetUserByEmail fetches one user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.userTable),
		Key: map[string]types.AttributeValue{
			"email": &types.AttributeValueMemberS{Value: email},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var user models.User
	if err := attributevalue.UnmarshalMap(out.Item, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &user, nil
}

func recipeKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"recipeId": &types.AttributeValueMemberS{Value: id},
	}
}

func idKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}
