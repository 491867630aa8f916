package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/alkaitz/telepilot/internal/bot"
)

var domainCaser = cases.Title(language.English)

const homeUnconfigured = "🏠 Smart home is not configured."

// defaultClimateEntity is the climate entity targeted by /temp. Kept as a
// package variable so a future config knob can override it.
var defaultClimateEntity = "climate.home"

// Lights handles /lights [on|off|dim N]. Without arguments it reports the
// current state of every light.
func (d *Deps) Lights(ctx context.Context, req *bot.Request) error {
	if d.Home == nil {
		return req.Responder.Reply(ctx, homeUnconfigured)
	}
	typing(ctx, req)

	fields := strings.Fields(bot.Argument(req.Text))
	if len(fields) == 0 {
		lights, err := d.Home.ListStates(ctx, "light")
		if err != nil {
			return fmt.Errorf("list lights: %w", err)
		}
		if len(lights) == 0 {
			return req.Responder.Reply(ctx, "🏠 No lights found.")
		}
		var b strings.Builder
		b.WriteString("💡 Lights\n\n")
		for _, l := range lights {
			icon := "⚫"
			if l.State == "on" {
				icon = "🟡"
			}
			fmt.Fprintf(&b, "%s %s — %s\n", icon, l.FriendlyName(), l.State)
		}
		return req.Responder.Reply(ctx, b.String())
	}

	switch fields[0] {
	case "on":
		if err := d.Home.TurnOn(ctx, "light.all_lights"); err != nil {
			return fmt.Errorf("lights on: %w", err)
		}
		return req.Responder.Reply(ctx, "💡 Lights on.")
	case "off":
		if err := d.Home.TurnOff(ctx, "light.all_lights"); err != nil {
			return fmt.Errorf("lights off: %w", err)
		}
		return req.Responder.Reply(ctx, "💡 Lights off.")
	case "dim":
		if len(fields) < 2 {
			return req.Responder.Reply(ctx, "💡 Dim to what? Usage: /lights dim 50")
		}
		pct, err := strconv.Atoi(fields[1])
		if err != nil || pct < 0 || pct > 100 {
			return req.Responder.Reply(ctx, "💡 Brightness must be a number between 0 and 100.")
		}
		if err := d.Home.SetBrightness(ctx, "light.all_lights", pct*255/100); err != nil {
			return fmt.Errorf("lights dim: %w", err)
		}
		return req.Responder.Reply(ctx, fmt.Sprintf("💡 Lights dimmed to %d%%.", pct))
	default:
		return req.Responder.Reply(ctx, "💡 Usage: /lights [on|off|dim N]")
	}
}

// Scene handles /scene [name].
func (d *Deps) Scene(ctx context.Context, req *bot.Request) error {
	if d.Home == nil {
		return req.Responder.Reply(ctx, homeUnconfigured)
	}
	name := bot.Argument(req.Text)
	if name == "" {
		typing(ctx, req)
		scenes, err := d.Home.ListStates(ctx, "scene")
		if err != nil {
			return fmt.Errorf("list scenes: %w", err)
		}
		if len(scenes) == 0 {
			return req.Responder.Reply(ctx, "🏠 No scenes found.")
		}
		var b strings.Builder
		b.WriteString("🎬 Scenes\n\n")
		for _, s := range scenes {
			fmt.Fprintf(&b, "• %s\n", strings.TrimPrefix(s.EntityID, "scene."))
		}
		b.WriteString("\nActivate one with /scene [name]")
		return req.Responder.Reply(ctx, b.String())
	}

	name = strings.ReplaceAll(strings.ToLower(name), " ", "_")
	if err := d.Home.ActivateScene(ctx, name); err != nil {
		return fmt.Errorf("activate scene %s: %w", name, err)
	}
	return req.Responder.Reply(ctx, fmt.Sprintf("🎬 Scene '%s' activated.", name))
}

// Temp handles /temp: sets the target temperature when given a number,
// otherwise reports the current climate state.
func (d *Deps) Temp(ctx context.Context, req *bot.Request) error {
	if d.Home == nil {
		return req.Responder.Reply(ctx, homeUnconfigured)
	}
	typing(ctx, req)

	arg := bot.Argument(req.Text)
	if arg == "" {
		s, err := d.Home.GetState(ctx, defaultClimateEntity)
		if err != nil {
			return fmt.Errorf("climate state: %w", err)
		}
		current, _ := s.Attributes["current_temperature"].(float64)
		target, _ := s.Attributes["temperature"].(float64)
		return req.Responder.Reply(ctx, fmt.Sprintf(
			"🌡️ %s is %s\n• Current: %.1f°C\n• Target: %.1f°C", s.FriendlyName(), s.State, current, target))
	}

	celsius, err := strconv.ParseFloat(arg, 64)
	if err != nil || celsius < 5 || celsius > 35 {
		return req.Responder.Reply(ctx, "🌡️ Give me a temperature between 5 and 35. Usage: /temp 21.5")
	}
	if err := d.Home.SetTemperature(ctx, defaultClimateEntity, celsius); err != nil {
		return fmt.Errorf("set temperature: %w", err)
	}
	return req.Responder.Reply(ctx, fmt.Sprintf("🌡️ Target temperature set to %.1f°C.", celsius))
}

// Home_ handles /home: a compact overview of interesting entities. The
// trailing underscore avoids colliding with the Home client field.
func (d *Deps) Home_(ctx context.Context, req *bot.Request) error {
	if d.Home == nil {
		return req.Responder.Reply(ctx, homeUnconfigured)
	}
	typing(ctx, req)

	var b strings.Builder
	b.WriteString("🏠 Home Overview\n")
	for _, domain := range []string{"light", "switch", "climate", "sensor"} {
		states, err := d.Home.ListStates(ctx, domain)
		if err != nil {
			return fmt.Errorf("list %s: %w", domain, err)
		}
		if len(states) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s (%d):\n", domainCaser.String(domain), len(states))
		for i, s := range states {
			if i == 5 {
				fmt.Fprintf(&b, "  … and %d more\n", len(states)-5)
				break
			}
			fmt.Fprintf(&b, "  • %s — %s\n", s.FriendlyName(), s.State)
		}
	}
	return req.Responder.Reply(ctx, b.String())
}
