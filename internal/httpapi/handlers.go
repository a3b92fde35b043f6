package httpapi

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/anatolykoptev/go_takedown/internal/engine"
	"github.com/anatolykoptev/go_takedown/internal/toolutil"
	"github.com/gofiber/fiber/v2"
)

var categoryLabels = map[string]string{
	"default": "All Categories",
	"music":   "Music",
	"gaming":  "Gaming",
	"movies":  "Movies",
}

type category struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// subjectBody accepts both the generic subjectName and the gameName field of /api/analyze-game.
type subjectBody struct {
	SubjectName      string   `json:"subjectName"`
	GameName         string   `json:"gameName"`
	ChannelWhitelist []string `json:"channelWhitelist"`
}

// videoDetails is the minimal record served for a video id; no upstream lookup is made.
type videoDetails struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	AuthorID      string   `json:"authorId"`
	Description   string   `json:"description"`
	ViewCount     int64    `json:"viewCount"`
	LengthSeconds int      `json:"lengthSeconds"`
	PublishedText string   `json:"publishedText"`
	Keywords      []string `json:"keywords"`
	Thumbnail     string   `json:"thumbnail"`
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339Nano),
		"services": fiber.Map{
			"proxy":      "Piped API",
			"scraper":    "yt-dlp",
			"ai":         s.model,
			"sourceMode": string(s.mode),
		},
	})
}

func (s *Server) categories(c *fiber.Ctx) error {
	out := make([]category, 0, len(toolutil.Categories))
	for _, v := range toolutil.Categories {
		out = append(out, category{Value: v, Label: categoryLabels[v]})
	}
	return c.JSON(fiber.Map{"categories": out})
}

func (s *Server) videoDetails(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("videoId"))
	if id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "video id is required")
	}
	return c.JSON(videoDetails{
		ID:       id,
		Title:    "Video details not available",
		Keywords: []string{},
	})
}

func (s *Server) analyze(c *fiber.Ctx) error {
	var req engine.SearchAnalysisRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Keywords) == "" && strings.TrimSpace(req.Category) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Please provide either keywords or category")
	}
	req, err := toolutil.NormSearchRequest(req)
	if err != nil {
		return err
	}
	resp, err := s.analyzer.AnalyzeSearch(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (s *Server) analyzeSubject(c *fiber.Ctx) error {
	var body subjectBody
	if err := decodeBody(c, &body); err != nil {
		return err
	}
	subject := strings.TrimSpace(body.SubjectName)
	if subject == "" {
		subject = strings.TrimSpace(body.GameName)
	}
	if subject == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Please provide a game name")
	}
	resp, err := s.analyzer.AnalyzeSubject(c.UserContext(), engine.SubjectAnalysisRequest{
		SubjectName:      subject,
		ChannelWhitelist: toolutil.NormWhitelist(body.ChannelWhitelist),
	})
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// decodeBody unmarshals a JSON body. An empty body leaves dst untouched.
func decodeBody(c *fiber.Ctx, dst any) error {
	body := c.Body()
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body: "+err.Error())
	}
	return nil
}
