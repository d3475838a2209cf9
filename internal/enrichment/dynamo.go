package enrichment

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Batch write with a maximum of 25 items per request (DynamoDB limit)
const maxBatchSize = 25

type BatchWriteAPI interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

type item struct {
	SongID string `dynamodbav:"song_id"`
	Record
}

// LoadTable scans every page of the table into a Store.
func LoadTable(ctx context.Context, client dynamodb.ScanAPIClient, table string) (*Store, error) {
	records := make(map[string]Record)
	input := &dynamodb.ScanInput{
		TableName: aws.String(table),
	}

	paginator := dynamodb.NewScanPaginator(client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan DynamoDB: %w", err)
		}

		var pageItems []item
		err = attributevalue.UnmarshalListOfMaps(page.Items, &pageItems)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal DynamoDB items: %w", err)
		}

		for _, it := range pageItems {
			if it.SongID == "" {
				continue
			}
			records[it.SongID] = it.Record
		}
	}

	return &Store{records: records}, nil
}

// WriteTable puts every record into the table, in identifier order.
func WriteTable(ctx context.Context, client BatchWriteAPI, table string, records map[string]Record) (int, error) {
	ids := make([]string, 0, len(records))
	for id := range records {
		if id == "" {
			return 0, errors.New("record with empty song id")
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var writeRequests []types.WriteRequest
	for _, id := range ids {
		av, err := attributevalue.MarshalMap(item{SongID: id, Record: records[id]})
		if err != nil {
			return 0, fmt.Errorf("failed to marshal record %s: %w", id, err)
		}
		writeRequests = append(writeRequests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: av},
		})
	}

	written := 0
	for i := 0; i < len(writeRequests); i += maxBatchSize {
		end := min(i+maxBatchSize, len(writeRequests))

		out, err := client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				table: writeRequests[i:end],
			},
		})
		if err != nil {
			return written, fmt.Errorf("failed to batch write items to DynamoDB: %w", err)
		}
		if n := len(out.UnprocessedItems[table]); n > 0 {
			return written + (end - i - n), fmt.Errorf("%d items left unprocessed by DynamoDB", n)
		}
		written += end - i
	}

	return written, nil
}

// Load picks the table when one is named and the JSON file otherwise.
func Load(ctx context.Context, path, table string, client dynamodb.ScanAPIClient) (*Store, error) {
	if table != "" {
		if client == nil {
			return nil, errors.New("enrichment table configured without a DynamoDB client")
		}
		return LoadTable(ctx, client, table)
	}
	return LoadFile(path)
}
