package ai

import (
	"context"
	"image"
	"strings"

	"emperror.dev/errors"
	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/ollama/ollama/api"
	"google.golang.org/genai"

	"imageqa/internal/config"
)

const defaultMaxTokens = 256

// Model is a pretrained image question answering model.
// Every call is independent: nothing from one question carries into the next.
type Model interface {
	// Name identifies the backend as provider/model.
	Name() string
	// Encode turns an image and one question into the model's input.
	Encode(ctx context.Context, img image.Image, question string) (*Encoding, error)
	// Generate runs a single inference.
	Generate(ctx context.Context, enc *Encoding) (*Output, error)
	// Decode renders raw output as readable text.
	Decode(out *Output) string
}

// Encoding is the model input for one (image, question) pair.
type Encoding struct {
	Question string
	Image    []byte
	MIMEType string

	messages []*schema.Message
	generate *api.GenerateRequest
}

// Output is the raw, undecoded model output.
type Output struct {
	Raw        string
	TokenCount int
}

// New builds the backend named by cfg.Provider.
func New(ctx context.Context, cfg config.ModelConfig) (Model, error) {
	provider := strings.ToLower(cfg.Provider)
	opts := options{
		provider:     provider,
		model:        cfg.Name,
		systemPrompt: cfg.SystemPrompt,
		maxImageSide: cfg.MaxImageSide,
		skipSpecial:  cfg.SkipSpecialTokens == nil || *cfg.SkipSpecialTokens,
		maxTokens:    cfg.MaxTokens,
	}
	if cfg.Temperature != nil {
		opts.temperature = *cfg.Temperature
	}
	if opts.maxTokens <= 0 {
		opts.maxTokens = defaultMaxTokens
	}
	if opts.model == "" {
		return nil, errors.Errorf("model name required for provider %s", provider)
	}

	var (
		chatModel model.BaseChatModel
		err       error
	)
	switch provider {
	case "openai":
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Name,
			APIKey:  cfg.APIKey,
		})
	case "gemini":
		var client *genai.Client
		client, err = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, errors.Wrap(err, "create gemini client")
		}
		chatModel, err = gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  cfg.Name,
		})
	case "claude":
		var baseURLPtr *string
		if cfg.BaseURL != "" {
			baseURLPtr = &cfg.BaseURL
		}
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Name,
			BaseURL:   baseURLPtr,
			MaxTokens: opts.maxTokens,
		})
	case "ollama":
		return newOllamaModel(cfg.BaseURL, opts)
	default:
		return nil, errors.Errorf("invalid provider: %s", provider)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "init %s chat model", provider)
	}
	return newChatModel(chatModel, opts), nil
}

type options struct {
	provider     string
	model        string
	systemPrompt string
	maxImageSide int
	skipSpecial  bool
	temperature  float32
	maxTokens    int
}

func (o options) name() string {
	return o.provider + "/" + o.model
}
