package ai

import (
	"context"
	"image"
	"net/http"
	"net/url"
	"strings"

	"emperror.dev/errors"
	"github.com/ollama/ollama/api"
)

// ollamaClient is the part of api.Client used here.
type ollamaClient interface {
	Generate(ctx context.Context, req *api.GenerateRequest, fn api.GenerateResponseFunc) error
}

// ollamaModel runs a locally served vision model such as llava.
type ollamaModel struct {
	client ollamaClient
	opts   options
}

func newOllamaModel(baseURL string, opts options) (*ollamaModel, error) {
	var (
		client *api.Client
		err    error
	)
	if baseURL != "" {
		u, perr := url.Parse(baseURL)
		if perr != nil {
			return nil, errors.Wrap(perr, "parse ollama base url")
		}
		client = api.NewClient(u, http.DefaultClient)
	} else {
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, errors.Wrap(err, "create ollama client")
		}
	}
	return &ollamaModel{client: client, opts: opts}, nil
}

func (o *ollamaModel) Name() string {
	return o.opts.name()
}

func (o *ollamaModel) Encode(ctx context.Context, img image.Image, question string) (*Encoding, error) {
	data, err := Preprocess(img, o.opts.maxImageSide)
	if err != nil {
		return nil, err
	}
	stream := false
	return &Encoding{
		Question: question,
		Image:    data,
		MIMEType: encodedMIMEType,
		generate: &api.GenerateRequest{
			Model:  o.opts.model,
			Prompt: question,
			System: o.opts.systemPrompt,
			Images: []api.ImageData{data},
			Stream: &stream,
			Options: map[string]interface{}{
				"temperature": o.opts.temperature,
				"num_predict": o.opts.maxTokens,
			},
		},
	}, nil
}

func (o *ollamaModel) Generate(ctx context.Context, enc *Encoding) (*Output, error) {
	if enc == nil || enc.generate == nil {
		return nil, errors.New("encoding has no generate request")
	}
	var (
		sb    strings.Builder
		count int
	)
	err := o.client.Generate(ctx, enc.generate, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		if resp.Done {
			count = resp.EvalCount
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "generate answer")
	}
	return &Output{Raw: sb.String(), TokenCount: count}, nil
}

func (o *ollamaModel) Decode(out *Output) string {
	if out == nil {
		return ""
	}
	return DecodeTokens(out.Raw, o.opts.skipSpecial)
}
