package ai

import (
	"context"
	"image"

	"emperror.dev/errors"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// chatModel adapts an eino chat model to single-shot image question answering.
type chatModel struct {
	chat model.BaseChatModel
	opts options
}

func newChatModel(chat model.BaseChatModel, opts options) *chatModel {
	return &chatModel{chat: chat, opts: opts}
}

func (c *chatModel) Name() string {
	return c.opts.name()
}

func (c *chatModel) Encode(ctx context.Context, img image.Image, question string) (*Encoding, error) {
	data, err := Preprocess(img, c.opts.maxImageSide)
	if err != nil {
		return nil, err
	}
	b64 := encodeBase64(data)
	messages := make([]*schema.Message, 0, 2)
	if c.opts.systemPrompt != "" {
		messages = append(messages, &schema.Message{
			Role:    schema.System,
			Content: c.opts.systemPrompt,
		})
	}
	messages = append(messages, &schema.Message{
		Role: schema.User,
		UserInputMultiContent: []schema.MessageInputPart{
			{
				Type: schema.ChatMessagePartTypeImageURL,
				Image: &schema.MessageInputImage{
					MessagePartCommon: schema.MessagePartCommon{
						Base64Data: &b64,
						MIMEType:   encodedMIMEType,
					},
					Detail: schema.ImageURLDetailAuto,
				},
			},
			{
				Type: schema.ChatMessagePartTypeText,
				Text: question,
			},
		},
	})
	return &Encoding{
		Question: question,
		Image:    data,
		MIMEType: encodedMIMEType,
		messages: messages,
	}, nil
}

func (c *chatModel) Generate(ctx context.Context, enc *Encoding) (*Output, error) {
	if enc == nil || len(enc.messages) == 0 {
		return nil, errors.New("encoding has no chat messages")
	}
	resp, err := c.chat.Generate(ctx, enc.messages,
		model.WithTemperature(c.opts.temperature),
		model.WithMaxTokens(c.opts.maxTokens),
	)
	if err != nil {
		return nil, errors.Wrap(err, "generate answer")
	}
	if resp == nil {
		return nil, errors.New("model returned no message")
	}
	out := &Output{Raw: resp.Content}
	if resp.ResponseMeta != nil && resp.ResponseMeta.Usage != nil {
		out.TokenCount = resp.ResponseMeta.Usage.CompletionTokens
	}
	return out, nil
}

func (c *chatModel) Decode(out *Output) string {
	if out == nil {
		return ""
	}
	return DecodeTokens(out.Raw, c.opts.skipSpecial)
}
