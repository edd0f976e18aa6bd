package syncer

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/cidatech/attendance-agent/internal/config"
	"github.com/cidatech/attendance-agent/internal/device"
	"github.com/cidatech/attendance-agent/internal/sink"
)

// CheckDevice performs a login round-trip and resolves the device identity.
func CheckDevice(capability device.Capability, cfg config.Config) (device.Identity, error) {
	manager := device.NewSessionManager(capability)
	if err := manager.Open(device.Credentials{
		Address:  cfg.IP,
		User:     cfg.User,
		Password: cfg.Password,
		Port:     cfg.Port,
	}); err != nil {
		return device.Identity{}, err
	}
	defer manager.Close()

	identity, err := manager.ResolveIdentity(cfg.Name)
	if err != nil {
		return device.Identity{}, err
	}
	log.Info().
		Str("model", identity.Model).
		Str("serial", identity.Serial).
		Msg("device check passed")
	return identity, nil
}

// CheckSink verifies the configured sink accepts a watermark query.
func CheckSink(ctx context.Context, store sink.Sink, identity device.Identity) error {
	_, _, err := store.LastSyncedTime(ctx, identity.Model, identity.Serial)
	if err != nil {
		return err
	}
	log.Info().Str("sink", store.Name()).Msg("sink check passed")
	return nil
}
