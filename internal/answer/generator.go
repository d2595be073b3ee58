package answer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// Generator invokes a text generation model with a raw JSON payload and
// returns the raw JSON response body.
type Generator interface {
	Invoke(ctx context.Context, modelID string, payload []byte) ([]byte, error)
}

// BedrockGenerator calls Amazon Bedrock's InvokeModel API.
type BedrockGenerator struct {
	client *bedrockruntime.Client
}

var _ Generator = (*BedrockGenerator)(nil)

// NewBedrockGenerator builds a Bedrock client from the default AWS
// credential chain, pinned to the given region.
func NewBedrockGenerator(ctx context.Context, region string) (*BedrockGenerator, error) {
	if region == "" {
		return nil, fmt.Errorf("AWS region is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &BedrockGenerator{client: bedrockruntime.NewFromConfig(cfg)}, nil
}

// Invoke sends the payload to the model and returns the response body.
func (g *BedrockGenerator) Invoke(ctx context.Context, modelID string, payload []byte) ([]byte, error) {
	out, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        payload,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("invoke model %s: %w", modelID, err)
	}
	return out.Body, nil
}
