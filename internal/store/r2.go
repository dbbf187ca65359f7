package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/mavillena/aemet-track/internal/climate"
)

// R2Store persists the same JSON artifacts as FileStore in an S3
// compatible bucket (Cloudflare R2), for hosts without durable disk.
type R2Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewR2Store creates a store against an S3-compatible endpoint.
// accessKeyID, secretAccessKey, endpoint and bucket are required; prefix
// defaults to "aemet-track/".
func NewR2Store(accessKeyID, secretAccessKey, endpoint, bucket, region, prefix string) (*R2Store, error) {
	if prefix == "" {
		prefix = "aemet-track/"
	}

	credProvider := credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")
	client := s3.New(s3.Options{
		Credentials:  credProvider,
		BaseEndpoint: aws.String(endpoint),
		Region:       region,
		UsePathStyle: true,
	})

	return &R2Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (r *R2Store) LoadHistory(ctx context.Context) (climate.History, error) {
	var history climate.History
	if err := r.getJSON(ctx, historyFile, &history); err != nil {
		return nil, err
	}
	if err := history.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", historyFile, err)
	}
	return history, nil
}

func (r *R2Store) SaveHistory(ctx context.Context, history climate.History) error {
	return r.putJSON(ctx, historyFile, history)
}

func (r *R2Store) LoadSummary(ctx context.Context) (*climate.Summary, error) {
	summary := new(climate.Summary)
	if err := r.getJSON(ctx, summaryFile, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

func (r *R2Store) SaveSummary(ctx context.Context, summary *climate.Summary) error {
	return r.putJSON(ctx, summaryFile, summary)
}

func (r *R2Store) LoadState(ctx context.Context) (RunState, error) {
	var state RunState
	if err := r.getJSON(ctx, stateFile, &state); err != nil {
		return RunState{}, err
	}
	return state, nil
}

func (r *R2Store) SaveState(ctx context.Context, state RunState) error {
	return r.putJSON(ctx, stateFile, state)
}

func (r *R2Store) getJSON(ctx context.Context, name string, target any) error {
	key := r.prefix + name
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return fmt.Errorf("%s: %w", name, climate.ErrNotStored)
		}
		return fmt.Errorf("get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err = json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (r *R2Store) putJSON(ctx context.Context, name string, value any) error {
	key := r.prefix + name
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}
