package pages

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ziadkadry99/storyforge/internal/config"
	"github.com/ziadkadry99/storyforge/internal/nav"
	"github.com/ziadkadry99/storyforge/internal/notice"
	"github.com/ziadkadry99/storyforge/internal/router"
	"github.com/ziadkadry99/storyforge/internal/session"
)

// Font sizes the editor accepts.
const (
	minFontSize = 10
	maxFontSize = 32
)

type settingsData struct {
	Config    *config.Config
	Warnings  []string
	Overrides session.Overrides
	ShowDebug bool
	MaskedKey string
	KeyEnv    string
	Keys      map[string]string
}

func (a *App) renderSettings(_ context.Context, req *router.Request) (router.Output, error) {
	cfg := a.Config()
	data := settingsData{
		Config:    cfg,
		Warnings:  warningText(a.configWarnings()),
		Overrides: req.Session.Overrides(session.Overrides{Model: cfg.Model, Temperature: cfg.Temperature}),
		ShowDebug: req.Session.ShowDebug(),
		MaskedKey: config.MaskSecret(cfg.APIKey(cfg.Provider)),
		KeyEnv:    config.APIKeyEnvVar(cfg.Provider),
		Keys:      keys(ui(req, "settings"), "model", "temperature", "overrides", "debug", "save"),
	}
	return execute("settings", "Settings", data)
}

func settingsTarget(req *router.Request) nav.Target {
	return nav.Target{Page: nav.PageSettings, ProjectID: req.Target.ProjectID}
}

// saveOverrides sets the model and temperature for this session only.
func (a *App) saveOverrides(_ context.Context, req *router.Request) (nav.Target, error) {
	cfg := a.Config()
	ov := session.Overrides{
		Model:       formTrim(req.Form, "model"),
		Temperature: formFloat(req.Form, "temperature", -1),
	}
	if ov.Model == "" {
		ov.Model = cfg.Model
	}
	if ov.Temperature < config.MinTemperature || ov.Temperature > config.MaxTemperature {
		return req.Target, notice.Advise(ErrInvalidInput,
			fmt.Sprintf("Temperature must be a number between %.1f and %.1f.", config.MinTemperature, config.MaxTemperature))
	}
	req.Session.SetOverrides(ov)
	req.Session.AddNotice(notice.Success("Session settings applied."))
	return settingsTarget(req), nil
}

// saveSettings updates the persisted preferences. The running config is
// replaced even when writing the file fails.
func (a *App) saveSettings(_ context.Context, req *router.Request) (nav.Target, error) {
	next := *a.Config()
	if theme := formTrim(req.Form, "theme"); theme == "light" || theme == "dark" {
		next.Theme = theme
	}
	next.EditorFontSize = min(max(formInt(req.Form, "editor_font_size", next.EditorFontSize), minFontSize), maxFontSize)
	next.RequestTimeoutSeconds = formInt(req.Form, "request_timeout_seconds", next.RequestTimeoutSeconds)
	next.SaveCooldownSeconds = max(0, formFloat(req.Form, "save_cooldown_seconds", next.SaveCooldownSeconds))
	next.GenerateCooldownSeconds = max(0, formFloat(req.Form, "generate_cooldown_seconds", next.GenerateCooldownSeconds))
	next.RecallEnabled = req.Form.Get("recall_enabled") == "true"

	if err := next.Validate(); err != nil {
		return req.Target, notice.Advise(err, "Those settings are not valid: "+err.Error()+".")
	}

	a.setConfig(&next)
	if a.assist != nil {
		a.assist.Reconfigure(&next)
	}

	if a.cfgPath != "" {
		if err := next.WithoutEnvSecrets().Save(a.cfgPath); err != nil {
			a.log.Error("saving config failed", zap.String("path", a.cfgPath), zap.Error(err))
			return settingsTarget(req), notice.Advise(err, "Settings apply until restart but could not be written to "+a.cfgPath+".")
		}
	}
	a.log.Info("settings saved", zap.String("path", a.cfgPath))
	req.Session.AddNotice(notice.Success("Preferences saved."))
	return settingsTarget(req), nil
}

func (a *App) toggleDebug(_ context.Context, req *router.Request) (nav.Target, error) {
	req.Session.SetShowDebug(!req.Session.ShowDebug())
	return settingsTarget(req), nil
}

func (a *App) clearDebug(_ context.Context, req *router.Request) (nav.Target, error) {
	req.Session.ClearLastError()
	req.Session.AddNotice(notice.Info("Error record cleared."))
	return req.Target, nil
}
