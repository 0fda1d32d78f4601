// Package assistant implements the "help me find a room" feature: a
// single prompt/response call to a language-model collaborator. The
// model only ever sees the public room inventory and the guest's
// free-text wishes; it holds no state between calls.
package assistant

import (
    "context"
    "fmt"
    "strings"

    "google.golang.org/genai"

    "github.com/iliyamo/hotello/internal/model"
)

// RoomSuggester is the language-model collaborator contract.
type RoomSuggester interface {
    Suggest(ctx context.Context, wishes string, rooms []model.Room) (string, error)
}

// GeminiSuggester implements RoomSuggester against the Gemini API.
type GeminiSuggester struct {
    apiKey string
    model  string
}

func NewGeminiSuggester(apiKey string) *GeminiSuggester {
    return &GeminiSuggester{apiKey: apiKey, model: "gemini-2.0-flash"}
}

// Suggest renders the inventory into the prompt and returns the
// model's recommendation text verbatim.
func (g *GeminiSuggester) Suggest(ctx context.Context, wishes string, rooms []model.Room) (string, error) {
    client, err := genai.NewClient(ctx, &genai.ClientConfig{
        APIKey:  g.apiKey,
        Backend: genai.BackendGeminiAPI,
    })
    if err != nil {
        return "", err
    }

    var b strings.Builder
    b.WriteString("You are a hotel booking assistant. Recommend at most three rooms from the inventory below that best match the guest's wishes. Mention each room by name with a one-sentence reason. If nothing fits, say so.\n\nInventory:\n")
    for _, r := range rooms {
        fmt.Fprintf(&b, "- %s (category %s, up to %d guests): %.2f per night. %s\n",
            r.Name, r.Category, r.MaxGuests, float64(r.PriceCents)/100, r.Description)
    }
    fmt.Fprintf(&b, "\nGuest wishes: %s\n", wishes)

    resp, err := client.Models.GenerateContent(ctx, g.model,
        []*genai.Content{{Parts: []*genai.Part{{Text: b.String()}}}},
        &genai.GenerateContentConfig{Temperature: genai.Ptr(float32(0.4))},
    )
    if err != nil {
        return "", err
    }
    return resp.Text(), nil
}
