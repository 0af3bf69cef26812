package dynamo

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/bozor-api/internal/domain"
)

// Guard item key prefixes. Guard items share the accounts table and reserve a
// phone number or username under a conditional put, which is the authoritative
// uniqueness check (GSI lookups used by the services are advisory only).
const (
	guardPhonePrefix    = "uniq#phone#"
	guardUsernamePrefix = "uniq#username#"
)

// AccountRepo provides typed DynamoDB operations for one account-variant
// table (admins, clients or markets). The same type serves every variant;
// only the table name differs.
type AccountRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewAccountRepo(client *dynamodb.Client, tableName string) *AccountRepo {
	return &AccountRepo{client: client, tableName: tableName}
}

// Create inserts the account together with its uniqueness guard items in a
// single transaction. A cancelled transaction whose reason is a failed
// condition means the phone number or username is already taken and maps to
// domain.ErrConflict.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}

	writes := []types.TransactWriteItem{
		{Put: &types.Put{
			TableName:           aws.String(r.tableName),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(account_id)"),
		}},
		{Put: &types.Put{
			TableName:           aws.String(r.tableName),
			Item:                guardItem(guardPhonePrefix+a.PhoneNumber, a.AccountID),
			ConditionExpression: aws.String("attribute_not_exists(account_id)"),
		}},
	}
	if a.Username != nil && *a.Username != "" {
		writes = append(writes, types.TransactWriteItem{Put: &types.Put{
			TableName:           aws.String(r.tableName),
			Item:                guardItem(guardUsernamePrefix+*a.Username, a.AccountID),
			ConditionExpression: aws.String("attribute_not_exists(account_id)"),
		}})
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: writes,
	})
	if err != nil {
		if isConditionalCancel(err) {
			return fmt.Errorf("phone number or username already exists: %w", domain.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *AccountRepo) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("account_id", accountID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) GetByPhone(ctx context.Context, phoneNumber string) (*domain.Account, error) {
	return r.queryGSI(ctx, "phone_number-index", "phone_number", phoneNumber)
}

func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.queryGSI(ctx, "username-index", "username", username)
}

// GetByRole returns the first account carrying the given role. Used only for
// the startup superadmin check, so a filtered scan is acceptable.
func (r *AccountRepo) GetByRole(ctx context.Context, role string) (*domain.Account, error) {
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("#r = :v"),
		ExpressionAttributeNames:  map[string]string{"#r": "role"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: role}},
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Items[0], &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) Update(ctx context.Context, accountID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("account_id", accountID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ConditionExpression:       aws.String("attribute_exists(account_id)"),
	})
	if err != nil {
		var ccfe *types.ConditionalCheckFailedException
		if errors.As(err, &ccfe) {
			return fmt.Errorf("account not found: %w", domain.ErrNotFound)
		}
	}
	return err
}

// RebindPhoneGuard moves the phone uniqueness reservation from oldPhone to
// newPhone. The conditional put on the new guard is what actually rejects a
// concurrent claim of the same number.
func (r *AccountRepo) RebindPhoneGuard(ctx context.Context, accountID, oldPhone, newPhone string) error {
	return r.rebindGuard(ctx, accountID, guardPhonePrefix+oldPhone, guardPhonePrefix+newPhone)
}

// RebindUsernameGuard moves the username reservation. oldUsername may be
// empty when the account had no username before.
func (r *AccountRepo) RebindUsernameGuard(ctx context.Context, accountID, oldUsername, newUsername string) error {
	oldKey := ""
	if oldUsername != "" {
		oldKey = guardUsernamePrefix + oldUsername
	}
	return r.rebindGuard(ctx, accountID, oldKey, guardUsernamePrefix+newUsername)
}

func (r *AccountRepo) rebindGuard(ctx context.Context, accountID, oldKey, newKey string) error {
	writes := []types.TransactWriteItem{
		{Put: &types.Put{
			TableName:           aws.String(r.tableName),
			Item:                guardItem(newKey, accountID),
			ConditionExpression: aws.String("attribute_not_exists(account_id)"),
		}},
	}
	if oldKey != "" && oldKey != newKey {
		writes = append(writes, types.TransactWriteItem{Delete: &types.Delete{
			TableName: aws.String(r.tableName),
			Key:       strKey("account_id", oldKey),
		}})
	}
	_, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: writes,
	})
	if err != nil && isConditionalCancel(err) {
		return fmt.Errorf("value already taken: %w", domain.ErrConflict)
	}
	return err
}

// Delete hard-deletes the account and releases its uniqueness guards. This is
// the explicit administrative removal path; nothing else deletes accounts.
func (r *AccountRepo) Delete(ctx context.Context, accountID string) error {
	a, err := r.Get(ctx, accountID)
	if err != nil {
		return err
	}
	writes := []types.TransactWriteItem{
		{Delete: &types.Delete{
			TableName: aws.String(r.tableName),
			Key:       strKey("account_id", accountID),
		}},
		{Delete: &types.Delete{
			TableName: aws.String(r.tableName),
			Key:       strKey("account_id", guardPhonePrefix+a.PhoneNumber),
		}},
	}
	if a.Username != nil && *a.Username != "" {
		writes = append(writes, types.TransactWriteItem{Delete: &types.Delete{
			TableName: aws.String(r.tableName),
			Key:       strKey("account_id", guardUsernamePrefix+*a.Username),
		}})
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: writes,
	})
	return err
}

// ScanPage returns a page of accounts, skipping guard items.
// cursor is a base64-encoded account_id used as ExclusiveStartKey.
// Returns the items, a next cursor (empty string when no more pages), and any error.
func (r *AccountRepo) ScanPage(ctx context.Context, limit int32, cursor string) ([]domain.Account, string, error) {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("NOT begins_with(account_id, :g)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":g": &types.AttributeValueMemberS{Value: "uniq#"},
		},
		Limit: aws.Int32(limit),
	}
	if cursor != "" {
		accountID, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", domain.ErrBadRequest)
		}
		input.ExclusiveStartKey = strKey("account_id", accountID)
	}
	out, err := r.client.Scan(ctx, input)
	if err != nil {
		return nil, "", err
	}
	var accounts []domain.Account
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &accounts); err != nil {
		return nil, "", err
	}
	nextCursor := ""
	if v, ok := out.LastEvaluatedKey["account_id"].(*types.AttributeValueMemberS); ok {
		nextCursor = encodeCursor(v.Value)
	}
	return accounts, nextCursor, nil
}

func (r *AccountRepo) queryGSI(ctx context.Context, index, attr, value string) (*domain.Account, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("account not found: %w", domain.ErrNotFound)
	}
	var a domain.Account
	if err := attributevalue.UnmarshalMap(out.Items[0], &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func guardItem(guardKey, ownerID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"account_id": &types.AttributeValueMemberS{Value: guardKey},
		"owner_id":   &types.AttributeValueMemberS{Value: ownerID},
	}
}

// isConditionalCancel reports whether a TransactWriteItems error was caused
// by a failed condition (as opposed to throttling or a transient conflict).
func isConditionalCancel(err error) bool {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return false
	}
	for _, reason := range tce.CancellationReasons {
		if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}

func encodeCursor(accountID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(accountID))
}

func decodeCursor(cursor string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
