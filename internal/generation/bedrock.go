package generation

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"

	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/domain"
)

// retrieveAndGenerateAPI is the slice of the Bedrock Agent Runtime client
// this package uses.
type retrieveAndGenerateAPI interface {
	RetrieveAndGenerate(ctx context.Context, params *bedrockagentruntime.RetrieveAndGenerateInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateOutput, error)
}

// BedrockConfig holds transport settings for the Bedrock client. They are
// applied once when the client is built.
type BedrockConfig struct {
	Region         string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	MaxAttempts    int
}

// DefaultBedrockConfig returns the default transport settings.
func DefaultBedrockConfig() BedrockConfig {
	return BedrockConfig{
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    30 * time.Second,
		MaxAttempts:    3,
	}
}

// BedrockClient calls the Bedrock knowledge-base RetrieveAndGenerate API.
type BedrockClient struct {
	api retrieveAndGenerateAPI
}

// NewBedrockClient loads AWS credentials from the environment and builds a
// client with the configured timeouts and retry attempts.
func NewBedrockClient(ctx context.Context, cfg BedrockConfig) (*BedrockClient, error) {
	defaults := DefaultBedrockConfig()
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaults.ConnectTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}

	httpClient := awshttp.NewBuildableClient().
		WithTimeout(cfg.ReadTimeout).
		WithDialerOptions(func(d *net.Dialer) {
			d.Timeout = cfg.ConnectTimeout
		})

	opts := []func(*config.LoadOptions) error{
		config.WithHTTPClient(httpClient),
		config.WithRetryMaxAttempts(cfg.MaxAttempts),
	}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, domain.ConfigError("load aws config", err)
	}

	return &BedrockClient{api: bedrockagentruntime.NewFromConfig(awsCfg)}, nil
}

// Generate runs one retrieve-and-generate call against the knowledge base.
func (c *BedrockClient) Generate(ctx context.Context, req Request) (*Response, error) {
	if req.KnowledgeBaseID == "" || req.ModelRef == "" {
		return nil, domain.ValidationError("knowledge base id and model reference are required", nil)
	}

	out, err := c.api.RetrieveAndGenerate(ctx, buildRetrieveAndGenerateInput(req))
	if err != nil {
		return nil, domain.GenerationError("retrieve and generate", err)
	}

	var text string
	if out.Output != nil {
		text = aws.ToString(out.Output.Text)
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.GenerationError("retrieve and generate", ErrEmptyResponse)
	}

	return &Response{Text: text, Citations: len(out.Citations)}, nil
}

func buildRetrieveAndGenerateInput(req Request) *bedrockagentruntime.RetrieveAndGenerateInput {
	generation := &types.GenerationConfiguration{
		InferenceConfig: &types.InferenceConfig{
			TextInferenceConfig: &types.TextInferenceConfig{
				MaxTokens:     aws.Int32(int32(req.Generation.MaxTokens)),
				Temperature:   aws.Float32(float32(req.Generation.Temperature)),
				TopP:          aws.Float32(float32(req.Generation.TopP)),
				StopSequences: req.Generation.StopSequences,
			},
		},
	}
	if req.PromptTemplate != "" {
		generation.PromptTemplate = &types.PromptTemplate{
			TextPromptTemplate: aws.String(req.PromptTemplate),
		}
	}

	search := &types.KnowledgeBaseVectorSearchConfiguration{
		NumberOfResults: aws.Int32(int32(req.Retrieval.NumberOfResults)),
	}
	if req.Retrieval.SearchType != "" {
		search.OverrideSearchType = types.SearchType(strings.ToUpper(req.Retrieval.SearchType))
	}

	return &bedrockagentruntime.RetrieveAndGenerateInput{
		Input: &types.RetrieveAndGenerateInput{
			Text: aws.String(req.Instruction),
		},
		RetrieveAndGenerateConfiguration: &types.RetrieveAndGenerateConfiguration{
			Type: types.RetrieveAndGenerateTypeKnowledgeBase,
			KnowledgeBaseConfiguration: &types.KnowledgeBaseRetrieveAndGenerateConfiguration{
				KnowledgeBaseId:         aws.String(req.KnowledgeBaseID),
				ModelArn:                aws.String(req.ModelRef),
				GenerationConfiguration: generation,
				RetrievalConfiguration: &types.KnowledgeBaseRetrievalConfiguration{
					VectorSearchConfiguration: search,
				},
			},
		},
	}
}
