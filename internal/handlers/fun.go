package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alkaitz/telepilot/internal/bot"
)

var jokes = []string{
	"Why don't scientists trust atoms? Because they make up everything!",
	"Why did the scarecrow win an award? He was outstanding in his field!",
	"Why don't eggs tell jokes? They'd crack each other up!",
	"What do you call a fake noodle? An impasta!",
	"Why did the math book look so sad? Because it had too many problems!",
	"What do you call a bear with no teeth? A gummy bear!",
	"Why don't skeletons fight each other? They don't have the guts!",
	"What do you call a sleeping bull? A bulldozer!",
	"Why did the coffee file a police report? It got mugged!",
	"What do you call a fish wearing a bowtie? Sofishticated!",
}

var funFacts = []string{
	"Honey never spoils. Archaeologists have found pots of honey in ancient Egyptian tombs that are over 3,000 years old and still perfectly edible.",
	"A group of flamingos is called a 'flamboyance'.",
	"Bananas are berries, but strawberries aren't.",
	"Octopuses have three hearts and blue blood.",
	"A shrimp's heart is in its head.",
	"The human brain uses about 20% of the body's total energy.",
	"There are more possible games of chess than atoms in the observable universe.",
	"Dolphins have names for each other.",
	"A day on Venus is longer than its year.",
	"Wombat poop is cube-shaped.",
	"Cleopatra lived closer in time to the Moon landing than to the construction of the Great Pyramid.",
	"There are more trees on Earth than stars in the Milky Way galaxy.",
}

var memeSubreddits = []string{"memes", "dankmemes", "wholesomememes", "ProgrammerHumor"}

// Joke handles /joke. The top-level rand functions are safe for the
// concurrent dispatches the transport produces.
func (d *Deps) Joke(ctx context.Context, req *bot.Request) error {
	return req.Responder.Reply(ctx, "😂 "+jokes[rand.IntN(len(jokes))])
}

// Fact handles /fact.
func (d *Deps) Fact(ctx context.Context, req *bot.Request) error {
	return req.Responder.Reply(ctx, "🤓 "+funFacts[rand.IntN(len(funFacts))])
}

// memeHTTP is the client used for Reddit meme fetches; a variable so tests
// can point it at a fake.
var memeHTTP = &http.Client{Timeout: 10 * time.Second}

// memeBaseURL is overridable in tests.
var memeBaseURL = "https://www.reddit.com"

// Meme handles /meme: a random image post pulled from a meme subreddit.
func (d *Deps) Meme(ctx context.Context, req *bot.Request) error {
	typing(ctx, req)

	sub := memeSubreddits[rand.IntN(len(memeSubreddits))]
	url := fmt.Sprintf("%s/r/%s/hot.json?limit=50", memeBaseURL, sub)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("User-Agent", "telepilot/1.0")

	resp, err := memeHTTP.Do(httpReq)
	if err != nil {
		return fmt.Errorf("fetch memes: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch memes: reddit returned %d", resp.StatusCode)
	}

	var listing struct {
		Data struct {
			Children []struct {
				Data struct {
					Title string `json:"title"`
					URL   string `json:"url"`
					Over  bool   `json:"over_18"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return fmt.Errorf("decode memes: %w", err)
	}

	type post struct{ title, url string }
	var images []post
	for _, ch := range listing.Data.Children {
		p := ch.Data
		if p.Over || !isImageURL(p.URL) {
			continue
		}
		images = append(images, post{p.Title, p.URL})
	}
	if len(images) == 0 {
		return req.Responder.Reply(ctx, "🎮 No memes right now. The internet must be broken.")
	}
	chosen := images[rand.IntN(len(images))]
	return req.Responder.ReplyPhoto(ctx, chosen.url, "🎮 "+chosen.title)
}

// gifHTTP and gifBaseURL are the Giphy equivalents of the meme seams.
var gifHTTP = &http.Client{Timeout: 10 * time.Second}
var gifBaseURL = "https://api.giphy.com"

// Gif handles /gif [tag]: a random GIF from Giphy, optionally themed by tag.
func (d *Deps) Gif(ctx context.Context, req *bot.Request) error {
	if d.GiphyKey == "" {
		return req.Responder.Reply(ctx, "🎬 GIF search is not configured.")
	}
	typing(ctx, req)

	q := url.Values{}
	q.Set("api_key", d.GiphyKey)
	q.Set("rating", "pg-13")
	if tag := bot.Argument(req.Text); tag != "" {
		q.Set("tag", tag)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		gifBaseURL+"/v1/gifs/random?"+q.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := gifHTTP.Do(httpReq)
	if err != nil {
		return fmt.Errorf("fetch gif: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch gif: giphy returned %d", resp.StatusCode)
	}

	var out struct {
		Data struct {
			Title  string `json:"title"`
			Images struct {
				Original struct {
					URL string `json:"url"`
				} `json:"original"`
			} `json:"images"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode gif: %w", err)
	}
	if out.Data.Images.Original.URL == "" {
		return req.Responder.Reply(ctx, "🎬 Nothing came back for that tag. Try another one.")
	}

	caption := "🎬 " + out.Data.Title
	if out.Data.Title == "" {
		caption = "🎬 Here you go!"
	}
	return req.Responder.ReplyPhoto(ctx, out.Data.Images.Original.URL, caption)
}

func isImageURL(u string) bool {
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif"} {
		if strings.HasSuffix(u, ext) {
			return true
		}
	}
	return false
}
