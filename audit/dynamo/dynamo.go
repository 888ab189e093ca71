// Package dynamo stores audit entries in a DynamoDB table.
//
// Table schema:
//   - Partition key: modality (string)
//   - Sort key: entry_key (string) - "<RFC3339Nano timestamp>#<entry id>"
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name biomatch-search-logs \
//	  --attribute-definitions AttributeName=modality,AttributeType=S AttributeName=entry_key,AttributeType=S \
//	  --key-schema AttributeName=modality,KeyType=HASH AttributeName=entry_key,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package dynamo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/biomatch/audit"
)

var _ audit.Sink = (*Sink)(nil)

// Client is the subset of the DynamoDB API used by the sink.
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Sink writes entries with PutItem.
type Sink struct {
	client Client
	table  string
}

// New creates a DynamoDB sink for table.
func New(client Client, table string) *Sink {
	return &Sink{client: client, table: table}
}

// Write implements audit.Sink.
func (s *Sink) Write(ctx context.Context, e audit.Entry) error {
	item, err := marshalEntry(e)
	if err != nil {
		return err
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(entry_key)"),
	})
	if err != nil {
		return fmt.Errorf("dynamodb put search log: %w", err)
	}
	return nil
}

func marshalEntry(e audit.Entry) (map[string]types.AttributeValue, error) {
	ts := e.Timestamp.UTC().Format(time.RFC3339Nano)
	item := map[string]types.AttributeValue{
		"modality":         &types.AttributeValueMemberS{Value: e.Modality.String()},
		"entry_key":        &types.AttributeValueMemberS{Value: ts + "#" + e.ID.String()},
		"entry_id":         &types.AttributeValueMemberS{Value: e.ID.String()},
		"logged_at":        &types.AttributeValueMemberS{Value: ts},
		"candidates_found": number(int64(e.CandidatesFound)),
		"latency_ns":       number(e.Latency.Nanoseconds()),
		"threshold":        &types.AttributeValueMemberN{Value: strconv.FormatFloat(float64(e.Threshold), 'g', -1, 32)},
		"outcome":          &types.AttributeValueMemberS{Value: string(e.Outcome)},
	}
	if e.Operator != "" {
		item["operator"] = &types.AttributeValueMemberS{Value: e.Operator}
	}
	if e.SubjectID != nil {
		item["subject_id"] = number(*e.SubjectID)
	}
	if e.SensorID != nil {
		item["sensor_id"] = number(*e.SensorID)
	}
	if e.SampleID != nil {
		item["sample_id"] = number(*e.SampleID)
	}
	if len(e.Diagnostics) > 0 {
		b, err := json.Marshal(e.Diagnostics)
		if err != nil {
			return nil, fmt.Errorf("marshalling diagnostics: %w", err)
		}
		item["diagnostics"] = &types.AttributeValueMemberS{Value: string(b)}
	}
	return item, nil
}

func number(v int64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}
}
