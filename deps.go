package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/hugogrimmett/meeting-analyser/auth"
	"github.com/hugogrimmett/meeting-analyser/calendar"
	"github.com/hugogrimmett/meeting-analyser/clients"
	"github.com/hugogrimmett/meeting-analyser/config"
	"github.com/hugogrimmett/meeting-analyser/local"
	"github.com/hugogrimmett/meeting-analyser/orchestrator"
)

// buildDeps wires the collaborators for the configured source. open, when
// set, shows the OAuth consent page in a browser.
func buildDeps(ctx context.Context, conf *config.Root, log logrus.FieldLogger, open func(string) error) (orchestrator.Deps, error) {
	var deps orchestrator.Deps
	if u := conf.Services.Visualization.URL; u != "" {
		deps.Renderer = clients.NewVisualization(clients.NewHTTP(nil), u, filepath.Join(conf.Paths.Outputs, "charts"))
	}

	if conf.Source == config.SourceLocal {
		deps.Events = &calendar.ICSFile{Path: conf.Paths.ICS, Log: log}
		deps.Notes = &local.NotesDir{Dir: conf.Notes.Dir}
		return deps, nil
	}

	oauthCfg, err := auth.LoadConfig(conf.Auth.Credentials)
	if err != nil {
		return deps, err
	}
	flow := &auth.Flow{
		Config:      oauthCfg,
		Cache:       tokenCache(conf.Auth),
		Log:         log,
		Prompt:      os.Stderr,
		OpenBrowser: open,
	}
	hc, err := flow.Client(ctx)
	if err != nil {
		return deps, err
	}

	svc := conf.Services
	drive, err := clients.NewDrive(ctx, hc, svc.Drive.URL, conf.Notes.Keyword)
	if err != nil {
		return deps, err
	}
	cal, err := clients.NewCalendar(ctx, hc, svc.Calendar.URL, conf.Calendar.ID)
	if err != nil {
		return deps, err
	}
	deps.Events, deps.Notes = cal, drive
	if deps.Renderer == nil {
		log.Warn("no visualization service configured; chart data and the deck are written locally")
		return deps, nil
	}
	if deps.Slides, err = clients.NewSlides(ctx, hc, svc.Slides.URL, drive, log); err != nil {
		return deps, err
	}
	return deps, nil
}

func tokenCache(a config.Auth) auth.TokenCache {
	if a.Store == config.StoreKeyring {
		return auth.NewKeyringCache()
	}
	return &auth.FileCache{Path: a.Token}
}
