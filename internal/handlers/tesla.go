package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/alkaitz/telepilot/internal/bot"
	"github.com/alkaitz/telepilot/internal/clients/tesla"
)

const teslaUnconfigured = "🚗 Tesla integration is not configured."

// Tesla handles /tesla: wake the car if needed and report its status.
func (d *Deps) Tesla(ctx context.Context, req *bot.Request) error {
	if d.Car == nil {
		return req.Responder.Reply(ctx, teslaUnconfigured)
	}
	typing(ctx, req)

	v, err := d.Car.Data(ctx)
	if err != nil {
		// Most failures here are the car being asleep. One wake attempt,
		// then retry the data read.
		if werr := d.Car.Wake(ctx); werr != nil {
			return fmt.Errorf("vehicle data: %w", err)
		}
		if v, err = d.Car.Data(ctx); err != nil {
			return fmt.Errorf("vehicle data after wake: %w", err)
		}
	}

	lock := "🔓 Unlocked"
	if v.VehicleState.Locked {
		lock = "🔒 Locked"
	}
	climate := "off"
	if v.ClimateState.IsClimateOn {
		climate = "on"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🚗 %s (%s)\n\n", v.DisplayName, v.State)
	fmt.Fprintf(&b, "🔋 Battery: %d%% (%.0f mi)\n", v.ChargeState.BatteryLevel, v.ChargeState.BatteryRange)
	fmt.Fprintf(&b, "⚡ Charging: %s (limit %d%%)\n", v.ChargeState.ChargingState, v.ChargeState.ChargeLimit)
	fmt.Fprintf(&b, "🌡️ Cabin: %.1f°C (outside %.1f°C), climate %s\n", v.ClimateState.InsideTemp, v.ClimateState.OutsideTemp, climate)
	fmt.Fprintf(&b, "%s · %.0f mi odometer", lock, v.VehicleState.Odometer)
	return req.Responder.Reply(ctx, b.String())
}

// Climate handles /climate [°C|off].
func (d *Deps) Climate(ctx context.Context, req *bot.Request) error {
	if d.Car == nil {
		return req.Responder.Reply(ctx, teslaUnconfigured)
	}
	arg := bot.Argument(req.Text)
	typing(ctx, req)

	switch arg {
	case "":
		if err := d.Car.Command(ctx, tesla.CmdClimateOn, nil); err != nil {
			return fmt.Errorf("climate on: %w", err)
		}
		return req.Responder.Reply(ctx, "🌡️ Climate on. The cabin is preconditioning.")
	case "off", "stop":
		if err := d.Car.Command(ctx, tesla.CmdClimateOff, nil); err != nil {
			return fmt.Errorf("climate off: %w", err)
		}
		return req.Responder.Reply(ctx, "🌡️ Climate off.")
	default:
		celsius, err := strconv.ParseFloat(arg, 64)
		if err != nil || celsius < 15 || celsius > 28 {
			return req.Responder.Reply(ctx, "🌡️ Give me a temperature between 15 and 28, or 'off'. Usage: /climate 21")
		}
		if err := d.Car.SetTemperature(ctx, celsius); err != nil {
			return fmt.Errorf("set cabin temperature: %w", err)
		}
		return req.Responder.Reply(ctx, fmt.Sprintf("🌡️ Cabin set to %.1f°C and preconditioning.", celsius))
	}
}

// Charge handles /charge [start|stop|limit N]. Without arguments it reports
// the charge state.
func (d *Deps) Charge(ctx context.Context, req *bot.Request) error {
	if d.Car == nil {
		return req.Responder.Reply(ctx, teslaUnconfigured)
	}
	typing(ctx, req)

	fields := strings.Fields(bot.Argument(req.Text))
	if len(fields) == 0 {
		v, err := d.Car.Data(ctx)
		if err != nil {
			return fmt.Errorf("charge state: %w", err)
		}
		return req.Responder.Reply(ctx, fmt.Sprintf(
			"⚡ %s\n🔋 %d%% (%.0f mi), limit %d%%",
			v.ChargeState.ChargingState, v.ChargeState.BatteryLevel,
			v.ChargeState.BatteryRange, v.ChargeState.ChargeLimit))
	}

	switch fields[0] {
	case "start":
		if err := d.Car.Command(ctx, tesla.CmdChargeStart, nil); err != nil {
			return fmt.Errorf("charge start: %w", err)
		}
		return req.Responder.Reply(ctx, "⚡ Charging started.")
	case "stop":
		if err := d.Car.Command(ctx, tesla.CmdChargeStop, nil); err != nil {
			return fmt.Errorf("charge stop: %w", err)
		}
		return req.Responder.Reply(ctx, "⚡ Charging stopped.")
	case "limit":
		if len(fields) < 2 {
			return req.Responder.Reply(ctx, "⚡ Limit to what? Usage: /charge limit 80")
		}
		pct, err := strconv.Atoi(fields[1])
		if err != nil || pct < 50 || pct > 100 {
			return req.Responder.Reply(ctx, "⚡ Charge limit must be between 50 and 100.")
		}
		if err := d.Car.SetChargeLimit(ctx, pct); err != nil {
			return fmt.Errorf("set charge limit: %w", err)
		}
		return req.Responder.Reply(ctx, fmt.Sprintf("⚡ Charge limit set to %d%%.", pct))
	default:
		return req.Responder.Reply(ctx, "⚡ Usage: /charge [start|stop|limit N]")
	}
}
