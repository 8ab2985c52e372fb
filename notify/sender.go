package notify

import (
	"github.com/mitchellh/mapstructure"
	"github.com/tcriess/lightspeed-queue/config"
	"github.com/tcriess/lightspeed-queue/globals"
)

// Sender is the outbound delivery capability. Send is best-effort: a failed
// send is reported to the caller for logging only, it never carries any queue
// state.
type Sender interface {
	Send(destination, body string) error
	// Enabled reports whether this sender can actually deliver anything.
	Enabled() bool
}

// NewSender builds the configured delivery provider. Missing or incomplete
// credentials degrade to a disabled sender (logged once here, not per
// request): delivery off is a configuration state, not an error.
func NewSender(cfg config.NotifierConfig) Sender {
	switch cfg.Provider {
	case "twilio":
		twilioCfg := TwilioConfig{}
		if err := mapstructure.WeakDecode(cfg.RawConfig, &twilioCfg); err != nil {
			globals.AppLogger.Error("could not decode twilio config, notifications disabled", "error", err)
			return disabledSender{}
		}
		if twilioCfg.AccountSid == "" || twilioCfg.AuthToken == "" {
			globals.AppLogger.Info("notifications disabled: missing twilio credentials")
			return disabledSender{}
		}
		globals.AppLogger.Info("notifications enabled", "provider", "twilio", "from", twilioCfg.FromNumber)
		return NewTwilioSender(twilioCfg)

	case "":
		globals.AppLogger.Info("notifications disabled: no provider configured")
		return disabledSender{}

	default:
		globals.AppLogger.Error("unknown notification provider, notifications disabled", "provider", cfg.Provider)
		return disabledSender{}
	}
}

// disabledSender skips every send. Used when no delivery capability is
// configured.
type disabledSender struct{}

func (disabledSender) Send(destination, body string) error {
	globals.AppLogger.Debug("notification skipped, delivery disabled", "destination", destination)
	return nil
}

func (disabledSender) Enabled() bool { return false }
