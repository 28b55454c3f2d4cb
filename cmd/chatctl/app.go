package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/chating-app/chating/client/internal/config"
	"github.com/chating-app/chating/client/internal/model/account"
	"github.com/chating-app/chating/client/internal/service/api"
	"github.com/chating-app/chating/client/internal/service/channel"
	"github.com/chating-app/chating/client/internal/service/profile"
	"github.com/chating-app/chating/client/internal/service/upload"
)

func newClient() (*api.Client, error) {
	return api.New(cfg.Server.BaseURL, api.WithTimeout(cfg.Server.HTTPTimeout))
}

func openProfiles() (*profile.Store, error) {
	return profile.Open(cfg.Storage.DataDir)
}

// currentProfile reads the identity saved by "chatctl login".
func currentProfile() (account.Profile, error) {
	store, err := openProfiles()
	if err != nil {
		return account.Profile{}, err
	}
	defer store.Close()

	p, err := store.Current()
	if errors.Is(err, profile.ErrNotLoggedIn) {
		return account.Profile{}, fmt.Errorf("%w: run \"chatctl login\" first", err)
	}
	return p, err
}

func channelOptions() (channel.Options, error) {
	base, err := cfg.Server.WebSocketBase()
	if err != nil {
		return channel.Options{}, err
	}
	return channel.Options{
		BaseURL:      base,
		PingInterval: cfg.Session.PingInterval,
		WriteTimeout: cfg.Session.WriteTimeout,
	}, nil
}

// newUploader picks the upload route. The returned close func releases
// whatever connection the route holds.
func newUploader(ctx context.Context, client *api.Client) (upload.Uploader, func(), error) {
	switch cfg.Upload.Mode {
	case config.UploadModeObjectStore:
		store, err := upload.OpenJetStream(ctx, cfg.Upload.NATSURL, cfg.Upload.Bucket)
		if err != nil {
			return nil, nil, err
		}
		uploader, err := upload.NewObjectStoreUploader(store, cfg.Upload.PublicURL)
		if err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		return uploader, func() { _ = store.Close() }, nil
	default:
		return upload.NewHTTPUploader(client), func() {}, nil
	}
}
