package handlers

import (
	"context"
	"fmt"

	"github.com/alkaitz/telepilot/internal/bot"
	"github.com/alkaitz/telepilot/internal/cmdargs"
	"github.com/alkaitz/telepilot/internal/metrics"
)

var generateSchema = cmdargs.Schema{
	Flags: []cmdargs.Flag{
		{Name: "size", Kind: cmdargs.String, Default: "1024x1024"},
		{Name: "hd", Kind: cmdargs.Bool},
	},
}

// Generate handles /generate: an image from a text prompt, with optional
// --size and --hd flags.
func (d *Deps) Generate(ctx context.Context, req *bot.Request) error {
	args, err := cmdargs.Parse(generateSchema, bot.Argument(req.Text))
	if err != nil {
		return req.Responder.Reply(ctx, "🖼️ "+err.Error())
	}
	if args.Positional == "" {
		return req.Responder.Reply(ctx, "🖼️ Describe the image. Usage: /generate [--size 1024x1024] [prompt]")
	}
	if d.AI == nil {
		return req.Responder.Reply(ctx, aiUnconfigured)
	}
	typing(ctx, req)

	url, err := d.AI.GenerateImage(ctx, args.Positional, args.String("size"))
	if err != nil {
		return fmt.Errorf("image generation: %w", err)
	}
	metrics.ImagesGenerated.Inc()
	return req.Responder.ReplyPhoto(ctx, url, "🖼️ "+args.Positional)
}
