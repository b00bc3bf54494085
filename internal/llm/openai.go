package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
)

// OpenAIModel calls the OpenAI Responses API.
type OpenAIModel struct {
	client openai.Client
	model  shared.ChatModel
}

// NewOpenAIModel builds a model for the given API key. An empty model name
// selects gpt-5-mini; baseURL is only needed for compatible gateways.
// SDK retries are disabled because Client owns the retry policy.
func NewOpenAIModel(apiKey, model, baseURL string) *OpenAIModel {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	name := shared.ChatModelGPT5Mini
	if model != "" {
		name = shared.ChatModel(model)
	}
	return &OpenAIModel{
		client: openai.NewClient(opts...),
		model:  name,
	}
}

func (m *OpenAIModel) Complete(ctx context.Context, req Request) (string, error) {
	content := responses.ResponseInputMessageContentListParam{}
	if req.Attachment != nil {
		encoded := base64.StdEncoding.EncodeToString(req.Attachment.Data)
		content = append(content, responses.ResponseInputContentUnionParam{
			OfInputFile: &responses.ResponseInputFileParam{
				FileData: openai.String("data:" + req.Attachment.MIMEType + ";base64," + encoded),
				Filename: openai.String(req.Attachment.Filename),
			},
		})
	}
	content = append(content, responses.ResponseInputContentParamOfInputText(req.Prompt))

	params := responses.ResponseNewParams{
		Model: m.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(content, "user"),
			},
		},
	}
	if req.Schema != nil {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigParamOfJSONSchema(req.Schema.Name, req.Schema.Definition),
		}
	}

	response, err := m.client.Responses.New(ctx, params)
	if err != nil {
		return "", classifyError(err)
	}
	outputText := response.OutputText()
	if req.Schema != nil && !json.Valid([]byte(outputText)) {
		return "", fmt.Errorf("%w: %s output is not valid JSON", ErrInvalidResponse, req.Schema.Name)
	}
	return outputText, nil
}

// classifyError maps SDK failures onto the package's error taxonomy.
func classifyError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		case apiErr.StatusCode >= 500:
			return fmt.Errorf("%w: %v", ErrTransport, err)
		default:
			return err
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return err
}

var _ Model = (*OpenAIModel)(nil)
