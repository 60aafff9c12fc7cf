package reasoning

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
)

type AzureChatCompleter interface {
	GetChatCompletions(ctx context.Context, body azopenai.ChatCompletionsOptions, options *azopenai.GetChatCompletionsOptions) (azopenai.GetChatCompletionsResponse, error)
}

type AzureClientCreator func(endpoint, apiKey string) (AzureChatCompleter, error)

func defaultAzureCreator(endpoint, apiKey string) (AzureChatCompleter, error) {
	return azopenai.NewClientWithKeyCredential(endpoint, azcore.NewKeyCredential(apiKey), nil)
}

var newAzureClient AzureClientCreator = defaultAzureCreator

// AzureClient talks to an Azure OpenAI chat deployment.
type AzureClient struct {
	chat         AzureChatCompleter
	deploymentID string
}

func NewAzure(endpoint, apiKey, deploymentID string) (*AzureClient, error) {
	endpoint = strings.TrimSpace(endpoint)
	apiKey = strings.TrimSpace(apiKey)
	deploymentID = strings.TrimSpace(deploymentID)
	switch {
	case apiKey == "":
		return nil, errors.New("AZURE_OPENAI_KEY not configured")
	case endpoint == "":
		return nil, errors.New("azure endpoint not configured")
	case deploymentID == "":
		return nil, errors.New("azure deployment not configured")
	}
	chat, err := newAzureClient(endpoint, apiKey)
	if err != nil {
		return nil, fmt.Errorf("create azure openai client: %w", err)
	}
	return &AzureClient{chat: chat, deploymentID: deploymentID}, nil
}

func NewAzureFromEnv(endpoint, deploymentID string) (*AzureClient, error) {
	return NewAzure(endpoint, os.Getenv("AZURE_OPENAI_KEY"), deploymentID)
}

func (c *AzureClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.chat.GetChatCompletions(
		ctx,
		azopenai.ChatCompletionsOptions{
			DeploymentName: to.Ptr(c.deploymentID),
			Messages: []azopenai.ChatRequestMessageClassification{
				&azopenai.ChatRequestUserMessage{
					Content: azopenai.NewChatRequestUserMessageContent(systemPrompt + "\n\n" + prompt),
				},
			},
		},
		nil,
	)
	if err != nil {
		return "", wrapTransportError("azure openai", err)
	}
	if len(resp.Choices) > 0 && resp.Choices[0].Message != nil && resp.Choices[0].Message.Content != nil {
		return *resp.Choices[0].Message.Content, nil
	}
	return "", ErrEmptyCompletion
}
