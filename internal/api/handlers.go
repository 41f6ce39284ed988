package api

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"imageqa/internal/models"
	"imageqa/internal/service/assistant"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templatesFS, "templates/*.tmpl"))

const (
	pageName     = "index.tmpl"
	imagesPrefix = "/images"
)

// Asker is the request-handling path: one submission in, one result out.
type Asker interface {
	Ask(ctx context.Context, req models.Request, requestID string) (*models.Result, error)
	ModelName() string
}

// Handler wires HTTP routes to the assistant service.
type Handler struct {
	assistant Asker
	imageDir  string
	logger    *slog.Logger
}

// NewHandler constructs a Handler instance. imageDir is served under /images.
func NewHandler(asst Asker, imageDir string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		assistant: asst,
		imageDir:  imageDir,
		logger:    logger,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.SetHTMLTemplate(pageTemplate)
	router.Use(requestIDMiddleware())
	router.GET("/", h.showPage)
	router.POST("/", h.submitPage)
	router.Static(imagesPrefix, h.imageDir)

	api := router.Group("/api")
	api.POST("/ask", h.ask)
	api.GET("/model", h.modelInfo)
}

type imageView struct {
	Src    string
	Width  int
	Height int
}

type pageView struct {
	Model     string
	ImageURL  string
	Questions string
	Error     string
	Image     *imageView
	Answers   []models.AnswerPair
}

func (h *Handler) showPage(c *gin.Context) {
	c.HTML(http.StatusOK, pageName, pageView{Model: h.assistant.ModelName()})
}

func (h *Handler) submitPage(c *gin.Context) {
	view := pageView{
		Model:     h.assistant.ModelName(),
		ImageURL:  c.PostForm("image_url"),
		Questions: c.PostForm("questions"),
	}
	req := models.NewRequest(view.ImageURL, view.Questions)
	res, err := h.assistant.Ask(c.Request.Context(), req, RequestID(c))
	if res != nil && res.Image != nil {
		view.Image = &imageView{
			Src:    imageSrc(res.Image.Name),
			Width:  res.Image.Width,
			Height: res.Image.Height,
		}
	}
	h.logOutcome(c, res, err)
	if err != nil {
		view.Error = assistant.UserMessage(err)
		c.HTML(http.StatusOK, pageName, view)
		return
	}
	view.Answers = res.Answers
	c.HTML(http.StatusOK, pageName, view)
}

type askRequest struct {
	ImageURL  string `json:"image_url"`
	Questions string `json:"questions"`
}

type imagePayload struct {
	*models.StoredImage
	URL string `json:"url"`
}

func (h *Handler) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	res, err := h.assistant.Ask(c.Request.Context(), models.NewRequest(req.ImageURL, req.Questions), RequestID(c))
	h.logOutcome(c, res, err)
	if err != nil {
		kind := assistant.Kind(err)
		body := gin.H{"error": assistant.UserMessage(err), "kind": kind}
		if res != nil && res.Image != nil {
			body["image"] = newImagePayload(res.Image)
		}
		c.JSON(statusForKind(kind), body)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"image":   newImagePayload(res.Image),
		"answers": res.Answers,
	})
}

func (h *Handler) modelInfo(c *gin.Context) {
	provider, name, _ := strings.Cut(h.assistant.ModelName(), "/")
	c.JSON(http.StatusOK, gin.H{"provider": provider, "model": name})
}

func (h *Handler) logOutcome(c *gin.Context, res *models.Result, err error) {
	ctx := c.Request.Context()
	if err != nil {
		h.logger.InfoContext(ctx, "submission failed",
			"requestID", RequestID(c),
			"kind", assistant.Kind(err))
		return
	}
	h.logger.InfoContext(ctx, "submission answered",
		"requestID", RequestID(c),
		"answers", len(res.Answers))
}

func newImagePayload(img *models.StoredImage) imagePayload {
	return imagePayload{StoredImage: img, URL: imageSrc(img.Name)}
}

func statusForKind(kind string) int {
	switch kind {
	case "fetch", "inference":
		return http.StatusBadGateway
	case "decode":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// imageSrc maps a storage key to its URL under /images.
func imageSrc(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return imagesPrefix + "/" + strings.Join(segments, "/")
}
